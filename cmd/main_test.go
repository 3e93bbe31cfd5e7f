package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/hotboard/internal/app"
	"github.com/okian/hotboard/internal/config"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("HOTBOARD_ADDR", ":8081")
			_ = os.Setenv("HOTBOARD_QUEUE_SIZE", "1000")
			_ = os.Setenv("HOTBOARD_SCHEDULER_ENABLED", "true")
			defer func() {
				_ = os.Unsetenv("HOTBOARD_ADDR")
				_ = os.Unsetenv("HOTBOARD_QUEUE_SIZE")
				_ = os.Unsetenv("HOTBOARD_SCHEDULER_ENABLED")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.SchedulerEnabled, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the mux is built over a started service", func() {
			ctx := context.Background()
			svc := app.New(app.WithWorkerCount(1), app.WithQueueSize(10))
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			convey.Reset(func() { _ = svc.Stop(ctx) })
			mux := newMux(svc)

			convey.Convey("Then the API and docs routes are served", func() {
				for _, tc := range []struct {
					method, path string
					want         int
				}{
					{http.MethodGet, "/healthz", http.StatusOK},
					{http.MethodGet, "/stats", http.StatusOK},
					{http.MethodGet, "/openapi.yaml", http.StatusOK},
					{http.MethodGet, "/api-docs", http.StatusOK},
					{http.MethodGet, "/leaderboard/daily", http.StatusOK},
					{http.MethodPost, "/recompute/weekly", http.StatusOK},
				} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, tc.want)
				}
			})

			convey.Convey("Then service metrics can be refreshed", func() {
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When run is cancelled", func() {
			cfg := config.New()
			cfg.Addr = "127.0.0.1:0"
			cfg.WorkerCount = 1
			cfg.EntityDriver = config.DriverSQLite
			cfg.EntityDSN = ":memory:"
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				convey.So(run(ctx, cfg), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the store backend is unknown", func() {
			cfg := config.New()
			cfg.Backend = "etcd"

			convey.Convey("Then run fails fast", func() {
				err := run(context.Background(), cfg)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(strings.Contains(err.Error(), "etcd"), convey.ShouldBeTrue)
			})
		})
	})
}
