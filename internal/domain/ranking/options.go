package ranking

import (
	"time"

	"github.com/okian/hotboard/pkg/logger"
)

const (
	defaultConcurrency   = 16
	defaultEntityTimeout = 2 * time.Second
	defaultFindChunkSize = 500
	defaultMaxPageSize   = 100
	defaultMaxPages      = 60
	defaultCountTTL      = 7 * 24 * time.Hour
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithConcurrency bounds the number of entities scored in parallel during a recompute.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithEntityTimeout bounds the time spent scoring and storing one entity.
func WithEntityTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.entityTimeout = d
		}
	}
}

// WithFindChunkSize sets how many candidate ids go into one FindByIDs call.
func WithFindChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.findChunkSize = n
		}
	}
}

// WithMaxPageSize sets the largest page size TopN accepts.
func WithMaxPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPageSize = n
		}
	}
}

// WithMaxPages caps the reported total page count. Zero disables the cap.
func WithMaxPages(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxPages = n
		}
	}
}

// WithTotalCountTTL sets how long a leaderboard size is reused for page counts.
func WithTotalCountTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.countTTL = d
		}
	}
}
