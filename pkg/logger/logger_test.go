package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithJSON(true)), ShouldBeNil)
		defer func() { _ = Init() }()
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Named("recompute").Info(ctx, "run finished",
				String("granularity", "daily"),
				Int64("now", 1700000000),
				Duration("took", 2*time.Second),
				Error(errors.New("boom")),
			)

			Convey("Then the line should carry the fields and the caller", func() {
				var line map[string]any
				So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
				So(line["msg"], ShouldEqual, "run finished")
				So(line["logger"], ShouldEqual, "recompute")
				So(line["granularity"], ShouldEqual, "daily")
				So(line["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("WARN"), ShouldBeNil)
			defer SetLevel(0)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then info lines should be filtered", func() {
				So(strings.Contains(buf.String(), "hidden"), ShouldBeFalse)
				So(strings.Contains(buf.String(), "shown"), ShouldBeTrue)
			})
		})

		Convey("When an unknown level is set", func() {
			err := SetLevelString("verbose")

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given Sync", t, func() {
		So(Sync(), ShouldBeNil)
	})
}
