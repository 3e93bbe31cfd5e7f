// Package service assembles the ranking engine, its stores and the async
// ingestion path into the object the HTTP API and the CLI talk to.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/hotboard/internal/adapters/entitystore"
	eventqueue "github.com/okian/hotboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/hotboard/internal/adapters/mq/worker"
	"github.com/okian/hotboard/internal/adapters/repository"
	"github.com/okian/hotboard/internal/domain/dedupe"
	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/domain/ranking"
	"github.com/okian/hotboard/internal/domain/types"
	"github.com/okian/hotboard/pkg/logger"
	"github.com/okian/hotboard/pkg/metrics"
)

// ErrNotStarted is returned by operations that need Start first.
var ErrNotStarted = errors.New("service not started")

// EntityStore is the primary entity store: the engine reads it and the CLI
// import writes it.
type EntityStore interface {
	ranking.EntityFinder
	Upsert(ctx context.Context, entities ...model.Entity) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	entities   EntityStore
	engine     *ranking.Engine
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool
	stopPool   context.CancelFunc

	workerCount   int
	queueSize     int
	dedupeSize    int
	shardCount    int
	engineOptions []ranking.Option
	now           func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of event recording workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the shard count of the default memory store.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithStore injects the bucket, tap and rank store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithEntityStore injects the primary entity store. The service closes it on Stop.
func WithEntityStore(es EntityStore) Option {
	return func(s *Service) { s.entities = es }
}

// WithEngineOptions forwards options to the ranking engine.
func WithEngineOptions(opts ...ranking.Option) Option {
	return func(s *Service) { s.engineOptions = append(s.engineOptions, opts...) }
}

// WithClock replaces time.Now for the engine and for recompute defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Stores default to in-memory implementations.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 4,
		queueSize:   100_000,
		dedupeSize:  500_000,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start builds the engine and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting ranking service...")

	if s.store == nil {
		var opts []repository.Option
		if s.shardCount > 0 {
			opts = append(opts, repository.WithShardCount(s.shardCount))
		}
		s.store = repository.NewMemoryStore(ctx, opts...)
	}
	if s.entities == nil {
		s.entities = entitystore.NewMemory()
	}

	engineOpts := append([]ranking.Option{
		ranking.WithClock(s.now),
		ranking.WithLogger(logger.Get().Named("ranking")),
	}, s.engineOptions...)
	s.engine = ranking.New(s.store, s.entities, engineOpts...)

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.engine,
		workerpool.WithFailureHook(func(ctx context.Context, e workerpool.Event, err error) {
			// Forget the id so the client can retry.
			s.deduper.Unrecord(ctx, e.EventID)
			s.logger.Warn(ctx, "event dropped",
				logger.String("event_id", e.EventID),
				logger.String("entity_id", e.EntityID),
				logger.Error(err))
		}),
	)
	// Workers outlive ctx so Stop can drain events already acknowledged.
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopPool = cancel
	s.workerPool.Start(poolCtx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the event queue and closes the stores.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping ranking service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.stopPool()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := s.entities.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close entity store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
	return errors.Join(errs...)
}

func (s *Service) running() (*ranking.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

// SeenAndRecord reports whether the event id was already seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord removes an event id from the seen set.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of remembered event ids.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// Enqueue submits an event for asynchronous recording. It returns false on
// backpressure or when the service is stopped.
func (s *Service) Enqueue(ctx context.Context, e model.Event) bool { //nolint:gocritic // hugeParam: Event goes by value into the queue
	s.mu.RLock()
	q := s.eventQueue
	started := s.started
	s.mu.RUnlock()
	if !started {
		return false
	}

	s.logger.Debug(ctx, "enqueueing event",
		logger.String("eventID", e.EventID),
		logger.String("entityID", e.EntityID),
		logger.String("action", e.Action.String()),
	)
	if !q.Enqueue(ctx, e) {
		metrics.RecordEventRejected()
		return false
	}
	return true
}

// RecordEvent applies an event synchronously.
func (s *Service) RecordEvent(ctx context.Context, entityID string, action model.Action, at time.Time) error {
	e, err := s.running()
	if err != nil {
		return err
	}
	return e.RecordEvent(ctx, entityID, action, at)
}

// Recompute rescores one leaderboard. A zero now means the service clock.
func (s *Service) Recompute(ctx context.Context, g model.Granularity, now time.Time) (types.RecomputeReport, error) {
	e, err := s.running()
	if err != nil {
		return types.RecomputeReport{}, err
	}
	if now.IsZero() {
		now = s.now()
	}
	report, err := e.Recompute(ctx, g, now)
	if err == nil {
		e.InvalidateCounts()
	}
	return report, err
}

// RecomputeDaily rescores the daily leaderboard.
func (s *Service) RecomputeDaily(ctx context.Context, now time.Time) (types.RecomputeReport, error) {
	return s.Recompute(ctx, model.Daily, now)
}

// RecomputeWeekly rescores the weekly leaderboard.
func (s *Service) RecomputeWeekly(ctx context.Context, now time.Time) (types.RecomputeReport, error) {
	return s.Recompute(ctx, model.Weekly, now)
}

// TopN returns one page of a leaderboard.
func (s *Service) TopN(ctx context.Context, g model.Granularity, page, pageSize int) (types.Page, error) {
	e, err := s.running()
	if err != nil {
		return types.Page{}, err
	}
	return e.TopN(ctx, g, page, pageSize)
}

// MaxPageSize reports the largest accepted page size.
func (s *Service) MaxPageSize() int {
	e, err := s.running()
	if err != nil {
		return 0
	}
	return e.MaxPageSize()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["queueLength"] = s.eventQueue.Len(ctx)
	stats["dedupeEntries"] = s.deduper.Size()
	for _, g := range model.Granularities() {
		if n, err := s.store.Count(ctx, g); err == nil {
			stats[g.String()+"Ranked"] = n
			metrics.UpdateLeaderboardSize(g.String(), n)
		}
	}
	if n, err := s.entities.Count(ctx); err == nil {
		stats["entities"] = n
	}
	return stats
}
