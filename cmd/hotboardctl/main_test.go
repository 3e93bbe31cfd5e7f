package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/hotboard/internal/adapters/entitystore"
	"github.com/okian/hotboard/internal/adapters/http/api"
	service "github.com/okian/hotboard/internal/app"
	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/domain/types"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsAgainstServer(t *testing.T) {
	convey.Convey("Given a running hotboard server", t, func() {
		ctx := context.Background()
		now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
		entities := entitystore.NewMemory()
		convey.So(entities.Upsert(ctx, model.Entity{ID: "t1", Title: "first"}), convey.ShouldBeNil)
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithEntityStore(entities),
			service.WithClock(func() time.Time { return now }),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(mux)
		srv := httptest.NewServer(mux)
		convey.Reset(func() {
			srv.Close()
			_ = svc.Stop(ctx)
		})

		convey.Convey("When an event is recorded, recomputed and read back", func() {
			out, err := execute("--url", srv.URL, "record", "--entity", "t1", "--action", "reply",
				"--event-id", "cli-1", "--ts", now.Add(-time.Hour).Format(time.RFC3339))
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, `"accepted"`)

			ok := false
			for range 100 {
				stats := svc.GetStats()
				if stats["queueLength"] == 0 {
					if _, err := execute("--url", srv.URL, "recompute", "daily"); err == nil {
						top, _ := svc.TopN(ctx, model.Daily, 1, 10)
						if len(top.Entities) == 1 {
							ok = true
							break
						}
					}
				}
				time.Sleep(10 * time.Millisecond)
			}
			convey.So(ok, convey.ShouldBeTrue)

			convey.Convey("Then top prints the ranked entity", func() {
				out, err := execute("--url", srv.URL, "top", "daily", "--json")
				convey.So(err, convey.ShouldBeNil)
				var page types.Page
				convey.So(json.Unmarshal([]byte(out), &page), convey.ShouldBeNil)
				convey.So(len(page.Entities), convey.ShouldEqual, 1)
				convey.So(page.Entities[0].Score, convey.ShouldEqual, 3)

				table, err := execute("--url", srv.URL, "top", "daily")
				convey.So(err, convey.ShouldBeNil)
				convey.So(table, convey.ShouldContainSubstring, "first")
			})

			convey.Convey("Then a repeated event id is reported as a duplicate", func() {
				out, err := execute("--url", srv.URL, "record", "--entity", "t1", "--event-id", "cli-1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"duplicate": true`)
			})
		})

		convey.Convey("When a recompute names an unknown board", func() {
			_, err := execute("--url", srv.URL, "recompute", "monthly")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a recompute gets a malformed --now", func() {
			_, err := execute("--url", srv.URL, "recompute", "daily", "--now", "noon")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestEntitiesCommands(t *testing.T) {
	convey.Convey("Given a CSV file and a sqlite database path", t, func() {
		dir := t.TempDir()
		csvPath := filepath.Join(dir, "entities.csv")
		convey.So(os.WriteFile(csvPath, []byte("id,title,author\na,A,x\nb,B,y\nc,C,z\n"), 0o600), convey.ShouldBeNil)
		dsn := filepath.Join(dir, "entities.db")

		convey.Convey("When the file is imported", func() {
			out, err := execute("entities", "import", csvPath, "--driver", "sqlite", "--dsn", dsn)

			convey.Convey("Then the store holds every row", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "imported 3 entities")

				count, err := execute("entities", "count", "--driver", "sqlite", "--dsn", dsn)
				convey.So(err, convey.ShouldBeNil)
				convey.So(strings.TrimSpace(count), convey.ShouldEqual, "3")
			})
		})

		convey.Convey("When no persistent driver is given", func() {
			_, err := execute("entities", "count")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
