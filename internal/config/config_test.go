package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/hotboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.Backend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.EntityDriver, convey.ShouldEqual, config.DriverMemory)
			convey.So(cfg.MaxPages, convey.ShouldEqual, 60)
			convey.So(cfg.TotalCountTTL, convey.ShouldEqual, 7*24*time.Hour)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		cases := map[string]func(){
			"empty addr":             func() { cfg.Addr = "" },
			"zero workers":           func() { cfg.WorkerCount = 0 },
			"zero queue":             func() { cfg.EventQueueSize = 0 },
			"negative page cap":      func() { cfg.MaxPages = -1 },
			"unknown backend":        func() { cfg.Backend = "etcd" },
			"redis without address":  func() { cfg.Backend = config.BackendRedis; cfg.RedisAddr = "" },
			"sqlite without dsn":     func() { cfg.EntityDriver = config.DriverSQLite },
			"unknown driver":         func() { cfg.EntityDriver = "mysql" },
			"scheduler without tick": func() { cfg.DailyRecomputeInterval = 0 },
			"zero entity timeout":    func() { cfg.RecomputeEntityTimeout = 0 },
		}
		for name, mutate := range cases {
			convey.Convey("When the config has "+name, func() {
				mutate()

				convey.Convey("Then validation should fail", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When the scheduler is disabled", func() {
			cfg.SchedulerEnabled = false
			cfg.DailyRecomputeInterval = 0

			convey.Convey("Then intervals are not required", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
