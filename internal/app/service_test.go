package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/hotboard/internal/adapters/entitystore"
	"github.com/okian/hotboard/internal/adapters/repository"
	service "github.com/okian/hotboard/internal/app"
	"github.com/okian/hotboard/internal/config"
	"github.com/okian/hotboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(10))
		ctx := context.Background()

		Convey("When it has not been started", func() {
			_, err := svc.TopN(ctx, model.Daily, 1, 10)

			Convey("Then engine operations should fail", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.Enqueue(ctx, model.Event{EventID: "e1", EntityID: "t1", Action: model.ActionHit}), ShouldBeFalse)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			err := svc.Stop(ctx)

			Convey("Then it should report stopped", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_StopDrainsAfterStartContextEnds(t *testing.T) {
	Convey("Given a service started on a context that is later cancelled", t, func() {
		const n = 5000
		at := time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)
		store := repository.NewMemoryStore(context.Background())
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(n),
			service.WithStore(store),
		)
		startCtx, cancel := context.WithCancel(context.Background())
		So(svc.Start(startCtx), ShouldBeNil)

		Convey("When every accepted event is still queued at cancellation", func() {
			accepted := 0
			for i := range n {
				e := model.Event{EventID: fmt.Sprintf("e%d", i), EntityID: "t1", Action: model.ActionHit, TS: at}
				if svc.Enqueue(context.Background(), e) {
					accepted++
				}
			}
			So(accepted, ShouldEqual, n)
			cancel()
			So(svc.Stop(context.Background()), ShouldBeNil)

			Convey("Then Stop should record all of them", func() {
				key := model.Daily.BucketKey(at)
				got, err := store.BulkGet(context.Background(), model.Daily, "t1", []int64{key})
				So(err, ShouldBeNil)
				So(got[key], ShouldEqual, int64(n))
			})
		})
	})
}

func TestService_EndToEnd(t *testing.T) {
	Convey("Given a started service with entities", t, func() {
		ctx := context.Background()
		now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
		store := repository.NewMemoryStore(ctx)
		entities := entitystore.NewMemory()
		So(entities.Upsert(ctx,
			model.Entity{ID: "t1", Title: "first"},
			model.Entity{ID: "t2", Title: "second"},
		), ShouldBeNil)

		svc := service.New(
			service.WithWorkerCount(2),
			service.WithStore(store),
			service.WithEntityStore(entities),
			service.WithClock(func() time.Time { return now }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When events are enqueued and recomputed", func() {
			events := []model.Event{
				{EventID: "e1", EntityID: "t1", Action: model.ActionHit, TS: now.Add(-time.Hour)},
				{EventID: "e2", EntityID: "t2", Action: model.ActionReply, TS: now.Add(-time.Hour)},
				{EventID: "e3", EntityID: "t2", Action: model.ActionHit, TS: now.Add(-2 * time.Hour)},
				{EventID: "e4", EntityID: "t1", Action: model.Action("bookmark"), TS: now.Add(-time.Hour)},
			}
			for _, e := range events {
				So(svc.SeenAndRecord(ctx, e.EventID), ShouldBeFalse)
				So(svc.Enqueue(ctx, e), ShouldBeTrue)
			}
			So(svc.SeenAndRecord(ctx, "e1"), ShouldBeTrue)

			hour := func(d time.Duration) int64 { return model.Daily.BucketKey(now.Add(d)) }
			So(waitFor(func() bool {
				t1, _ := store.BulkGet(ctx, model.Daily, "t1", []int64{hour(-time.Hour)})
				t2, _ := store.BulkGet(ctx, model.Daily, "t2", []int64{hour(-time.Hour), hour(-2 * time.Hour)})
				return t1[hour(-time.Hour)] == 1 && t2[hour(-time.Hour)] == 3 && t2[hour(-2*time.Hour)] == 1
			}), ShouldBeTrue)

			report, err := svc.RecomputeDaily(ctx, time.Time{})

			Convey("Then the leaderboard should reflect the weighted events", func() {
				So(err, ShouldBeNil)
				So(report.Now, ShouldEqual, now.Unix())
				So(report.Scored, ShouldEqual, 2)

				page, err := svc.TopN(ctx, model.Daily, 1, 10)
				So(err, ShouldBeNil)
				So(len(page.Entities), ShouldEqual, 2)
				So(page.Entities[0].Entity.ID, ShouldEqual, "t2")
				So(page.Entities[0].Score, ShouldEqual, 1*1+3*2)
				So(page.Entities[1].Entity.ID, ShouldEqual, "t1")
				So(page.Entities[1].Score, ShouldEqual, 1)
				So(page.TotalPages, ShouldEqual, 1)
			})
		})

		Convey("When events are recorded synchronously", func() {
			So(svc.RecordEvent(ctx, "t1", model.ActionReply, now.Add(-30*time.Minute)), ShouldBeNil)
			report, err := svc.RecomputeWeekly(ctx, now.Add(24*time.Hour))

			Convey("Then the weekly board should rank the entity", func() {
				So(err, ShouldBeNil)
				So(report.Granularity, ShouldEqual, "weekly")
				page, _ := svc.TopN(ctx, model.Weekly, 1, 5)
				So(len(page.Entities), ShouldEqual, 1)
				So(page.Entities[0].Score, ShouldEqual, 3)
			})
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestFromConfig(t *testing.T) {
	Convey("Given a config using sqlite for entities", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.EntityDriver = config.DriverSQLite
		cfg.EntityDSN = ":memory:"
		cfg.WorkerCount = 1

		svc, err := service.FromConfig(ctx, cfg)

		Convey("Then the service should start on the configured stores", func() {
			So(err, ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["entities"], ShouldEqual, 0)
			So(svc.MaxPageSize(), ShouldEqual, cfg.MaxPageSize)
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})

	Convey("Given a config with an unknown backend", t, func() {
		cfg := config.New()
		cfg.Backend = "etcd"

		_, err := service.FromConfig(context.Background(), cfg)

		Convey("Then it should be rejected", func() {
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
