package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/hotboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestAction(t *testing.T) {
	convey.Convey("Given the closed action table", t, func() {
		convey.Convey("When looking up known actions", func() {
			hit, hitOK := model.ActionHit.Weight()
			reply, replyOK := model.ActionReply.Weight()

			convey.Convey("Then they should carry fixed weights", func() {
				convey.So(hitOK, convey.ShouldBeTrue)
				convey.So(hit, convey.ShouldEqual, 1)
				convey.So(replyOK, convey.ShouldBeTrue)
				convey.So(reply, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When looking up an unknown action", func() {
			w, ok := model.Action("like").Weight()

			convey.Convey("Then it should carry no weight", func() {
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(w, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When parsing free-form input", func() {
			convey.So(model.ParseAction("  Reply "), convey.ShouldEqual, model.ActionReply)
			convey.So(model.ParseAction("HIT"), convey.ShouldEqual, model.ActionHit)
			convey.So(model.ParseAction("bogus"), convey.ShouldEqual, model.Action("bogus"))
		})
	})
}

func TestGranularity(t *testing.T) {
	convey.Convey("Given a timestamp in the middle of an hour", t, func() {
		now := time.Date(2024, 3, 14, 15, 42, 7, 0, time.UTC)

		convey.Convey("When truncating", func() {
			convey.So(model.Daily.Truncate(now), convey.ShouldEqual, time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC))
			convey.So(model.Weekly.Truncate(now), convey.ShouldEqual, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC))
		})

		convey.Convey("When building daily lookback keys", func() {
			keys := model.Daily.LookbackKeys(now)

			convey.Convey("Then there should be 24 hourly keys, most recent first", func() {
				convey.So(len(keys), convey.ShouldEqual, 24)
				convey.So(keys[0], convey.ShouldEqual, time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC).Unix())
				convey.So(keys[23], convey.ShouldEqual, time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC).Unix())
				for i := 1; i < len(keys); i++ {
					convey.So(keys[i-1]-keys[i], convey.ShouldEqual, int64(3600))
				}
			})
		})

		convey.Convey("When building weekly lookback keys", func() {
			keys := model.Weekly.LookbackKeys(now)

			convey.Convey("Then there should be 7 daily keys, most recent first", func() {
				convey.So(len(keys), convey.ShouldEqual, 7)
				convey.So(keys[0], convey.ShouldEqual, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC).Unix())
				convey.So(keys[6], convey.ShouldEqual, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC).Unix())
			})
		})

		convey.Convey("When the same instant carries different offsets", func() {
			ist := now.In(time.FixedZone("IST", 5*3600+1800))
			awst := now.In(time.FixedZone("AWST", 8*3600))

			convey.Convey("Then every offset should share one bucket", func() {
				for _, g := range model.Granularities() {
					convey.So(g.BucketKey(ist), convey.ShouldEqual, g.BucketKey(now))
					convey.So(g.BucketKey(awst), convey.ShouldEqual, g.BucketKey(now))
					convey.So(g.LookbackKeys(ist), convey.ShouldResemble, g.LookbackKeys(now))
				}
			})
		})

		convey.Convey("When the event bucket is compared with the lookback", func() {
			convey.Convey("Then the current bucket should not be scanned", func() {
				current := model.Daily.BucketKey(now)
				convey.So(model.Daily.LookbackKeys(now), convey.ShouldNotContain, current)
			})
		})
	})

	convey.Convey("Given granularity names", t, func() {
		d, err := model.ParseGranularity("daily")
		convey.So(err, convey.ShouldBeNil)
		convey.So(d, convey.ShouldEqual, model.Daily)

		w, err := model.ParseGranularity("weekly")
		convey.So(err, convey.ShouldBeNil)
		convey.So(w.String(), convey.ShouldEqual, "weekly")
		convey.So(w.Window(), convey.ShouldEqual, 7*24*time.Hour)

		_, err = model.ParseGranularity("monthly")
		convey.So(errors.Is(err, model.ErrUnknownGranularity), convey.ShouldBeTrue)

		convey.So(d.Valid(), convey.ShouldBeTrue)
		convey.So(w.Valid(), convey.ShouldBeTrue)
		convey.So(model.Granularity(9).Valid(), convey.ShouldBeFalse)
	})
}
