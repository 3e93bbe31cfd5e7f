// Package scheduler triggers leaderboard recomputes on fixed intervals.
package scheduler

import (
	"context"
	"time"

	"github.com/okian/hotboard/internal/domain/types"
	"github.com/okian/hotboard/pkg/logger"
	"github.com/okian/hotboard/pkg/metrics"
)

const (
	defaultDailyInterval  = 10 * time.Minute
	defaultWeeklyInterval = time.Hour
)

// Recomputer rescores the leaderboards. A zero now means the callee's clock.
type Recomputer interface {
	RecomputeDaily(ctx context.Context, now time.Time) (types.RecomputeReport, error)
	RecomputeWeekly(ctx context.Context, now time.Time) (types.RecomputeReport, error)
}

// Scheduler runs periodic daily and weekly recomputes.
type Scheduler struct {
	target     Recomputer
	dailyInt   time.Duration
	weeklyInt  time.Duration
	runOnStart bool
	logger     logger.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDailyInterval sets how often the daily board is rescored.
func WithDailyInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.dailyInt = d
		}
	}
}

// WithWeeklyInterval sets how often the weekly board is rescored.
func WithWeeklyInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.weeklyInt = d
		}
	}
}

// WithRunOnStart controls whether both boards are rescored as soon as Run
// starts. Enabled by default.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) { s.runOnStart = enabled }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new scheduler.
func New(target Recomputer, opts ...Option) *Scheduler {
	s := &Scheduler{
		target:     target,
		dailyInt:   defaultDailyInterval,
		weeklyInt:  defaultWeeklyInterval,
		runOnStart: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scheduler")
	}
	return s
}

// Run starts the scheduler loop. Blocks until ctx is cancelled. Runs never
// overlap: a tick that arrives while a recompute is in flight waits for it.
func (s *Scheduler) Run(ctx context.Context) error {
	dailyTicker := time.NewTicker(s.dailyInt)
	weeklyTicker := time.NewTicker(s.weeklyInt)
	defer dailyTicker.Stop()
	defer weeklyTicker.Stop()

	if s.runOnStart {
		s.run(ctx, "daily", s.target.RecomputeDaily)
		s.run(ctx, "weekly", s.target.RecomputeWeekly)
	}

	s.logger.Info(ctx, "scheduler running",
		logger.Duration("daily", s.dailyInt),
		logger.Duration("weekly", s.weeklyInt))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.WithoutCancel(ctx), "scheduler stopped")
			return ctx.Err() //nolint:wrapcheck // cancellation is the normal exit
		case <-dailyTicker.C:
			s.run(ctx, "daily", s.target.RecomputeDaily)
		case <-weeklyTicker.C:
			s.run(ctx, "weekly", s.target.RecomputeWeekly)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, board string, fn func(context.Context, time.Time) (types.RecomputeReport, error)) {
	if ctx.Err() != nil {
		return
	}
	report, err := fn(ctx, time.Time{})
	if err != nil {
		metrics.RecordErrorByComponent("scheduler", board)
		s.logger.Error(ctx, "scheduled recompute failed",
			logger.String("board", board),
			logger.Error(err))
		return
	}
	s.logger.Debug(ctx, "scheduled recompute done",
		logger.String("board", board),
		logger.Int("scored", report.Scored),
		logger.Int("failed", report.Failed),
		logger.Float64("duration_ms", report.DurationMS))
}
