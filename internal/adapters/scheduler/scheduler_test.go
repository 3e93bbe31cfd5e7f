package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hotboard/internal/adapters/scheduler"
	"github.com/okian/hotboard/internal/domain/types"
)

type countingRecomputer struct {
	daily  atomic.Int32
	weekly atomic.Int32
	err    error
}

func (c *countingRecomputer) RecomputeDaily(_ context.Context, now time.Time) (types.RecomputeReport, error) {
	if !now.IsZero() {
		return types.RecomputeReport{}, errors.New("scheduler must defer to the service clock")
	}
	c.daily.Add(1)
	return types.RecomputeReport{Granularity: "daily"}, c.err
}

func (c *countingRecomputer) RecomputeWeekly(_ context.Context, _ time.Time) (types.RecomputeReport, error) {
	c.weekly.Add(1)
	return types.RecomputeReport{Granularity: "weekly"}, c.err
}

func runFor(s *scheduler.Scheduler, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.Run(ctx)
}

func TestScheduler_Run(t *testing.T) {
	Convey("Given a scheduler with short intervals", t, func() {
		target := &countingRecomputer{}
		s := scheduler.New(target,
			scheduler.WithDailyInterval(10*time.Millisecond),
			scheduler.WithWeeklyInterval(40*time.Millisecond),
		)

		Convey("When it runs for a while", func() {
			err := runFor(s, 150*time.Millisecond)

			Convey("Then both boards are rescored repeatedly until cancel", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(target.daily.Load(), ShouldBeGreaterThan, target.weekly.Load())
				So(target.weekly.Load(), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})
	})

	Convey("Given a scheduler that does not run on start", t, func() {
		target := &countingRecomputer{}
		s := scheduler.New(target,
			scheduler.WithDailyInterval(time.Hour),
			scheduler.WithWeeklyInterval(time.Hour),
			scheduler.WithRunOnStart(false),
		)

		Convey("When it is cancelled before the first tick", func() {
			_ = runFor(s, 20*time.Millisecond)

			Convey("Then nothing is rescored", func() {
				So(target.daily.Load(), ShouldEqual, 0)
				So(target.weekly.Load(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a recomputer that always fails", t, func() {
		target := &countingRecomputer{err: errors.New("store down")}
		s := scheduler.New(target, scheduler.WithDailyInterval(10*time.Millisecond))

		Convey("Then the loop keeps going", func() {
			_ = runFor(s, 60*time.Millisecond)
			So(target.daily.Load(), ShouldBeGreaterThan, 1)
		})
	})
}
