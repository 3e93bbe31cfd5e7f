// Package ranking is the decay-weighted ranking engine: it records
// engagement into score buckets, recomputes the daily and weekly
// leaderboards from recently active entities, and serves ranked pages.
package ranking

import (
	"context"
	"sync"
	"time"

	"github.com/okian/hotboard/internal/adapters/repository"
	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/domain/scoring"
	"github.com/okian/hotboard/pkg/logger"
)

// EntityFinder looks entities up in the primary store. Results are
// unordered and ids that do not exist are simply absent.
type EntityFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]model.Entity, error)
}

// Engine ties the bucket store, tap registry and leaderboards together.
// All state lives in the injected store; the engine itself only caches
// leaderboard sizes for page counts.
type Engine struct {
	store  repository.Store
	finder EntityFinder
	scorer scoring.Scorer

	now           func() time.Time
	log           logger.Logger
	concurrency   int
	entityTimeout time.Duration
	findChunkSize int
	maxPageSize   int
	maxPages      int
	countTTL      time.Duration

	countMu sync.Mutex
	counts  map[model.Granularity]cachedCount
}

type cachedCount struct {
	n       int
	fetched time.Time
}

// New returns an Engine over store and finder.
func New(store repository.Store, finder EntityFinder, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		finder:        finder,
		scorer:        scoring.NewCalculator(store),
		now:           time.Now,
		concurrency:   defaultConcurrency,
		entityTimeout: defaultEntityTimeout,
		findChunkSize: defaultFindChunkSize,
		maxPageSize:   defaultMaxPageSize,
		maxPages:      defaultMaxPages,
		countTTL:      defaultCountTTL,
		counts:        make(map[model.Granularity]cachedCount),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("ranking")
	}
	return e
}

// MaxPageSize reports the largest page size TopN accepts.
func (e *Engine) MaxPageSize() int { return e.maxPageSize }
