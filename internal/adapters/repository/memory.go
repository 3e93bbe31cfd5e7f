package repository

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/pkg/metrics"
)

// bucketMapID names one Score Bucket Map.
type bucketMapID struct {
	g        model.Granularity
	entityID string
}

type bucketShard struct {
	mu   sync.Mutex
	maps map[bucketMapID]map[int64]int64
}

type lockedSet struct {
	mu  sync.RWMutex
	set *sortedSet
}

// MemoryStore is the in-process Store. Bucket maps are split over lock
// shards by entity id; the tap registry and each leaderboard are treaps
// behind their own RWMutex.
type MemoryStore struct {
	shardCount            int
	metricsUpdateInterval time.Duration

	shards []*bucketShard
	taps   lockedSet
	ranks  map[model.Granularity]*lockedSet

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an in-memory store. The background metrics
// updater stops when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		taps:                  lockedSet{set: newSortedSet()},
		ranks:                 make(map[model.Granularity]*lockedSet),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*bucketShard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &bucketShard{maps: make(map[bucketMapID]map[int64]int64)}
	}
	for _, g := range model.Granularities() {
		s.ranks[g] = &lockedSet{set: newSortedSet()}
	}

	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) shard(entityID string) *bucketShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(entityID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *MemoryStore) rankSet(g model.Granularity) (*lockedSet, error) {
	ls, ok := s.ranks[g]
	if !ok {
		return nil, checkGranularity(g)
	}
	return ls, nil
}

// Incr implements BucketStore.
func (s *MemoryStore) Incr(_ context.Context, g model.Granularity, entityID string, key int64, delta int64) error {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryUpdateLatency)

	if err := checkGranularity(g); err != nil {
		return err
	}
	sh := s.shard(entityID)
	id := bucketMapID{g: g, entityID: entityID}

	sh.mu.Lock()
	m, ok := sh.maps[id]
	if !ok {
		m = make(map[int64]int64)
		sh.maps[id] = m
	}
	m[key] += delta
	sh.mu.Unlock()
	return nil
}

// BulkGet implements BucketStore.
func (s *MemoryStore) BulkGet(_ context.Context, g model.Granularity, entityID string, keys []int64) (map[int64]int64, error) {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryQueryLatency)

	if err := checkGranularity(g); err != nil {
		return nil, err
	}
	sh := s.shard(entityID)
	out := make(map[int64]int64, len(keys))

	sh.mu.Lock()
	defer sh.mu.Unlock()
	m := sh.maps[bucketMapID{g: g, entityID: entityID}]
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Tap implements TapRegistry.
func (s *MemoryStore) Tap(_ context.Context, entityID string, at int64) error {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryUpdateLatency)

	s.taps.mu.Lock()
	s.taps.set.Set(entityID, float64(at))
	s.taps.mu.Unlock()
	return nil
}

// RangeByTime implements TapRegistry.
func (s *MemoryStore) RangeByTime(_ context.Context, from, to int64) ([]string, error) {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryQueryLatency)

	s.taps.mu.RLock()
	defer s.taps.mu.RUnlock()
	return s.taps.set.RangeByScore(float64(from), float64(to)), nil
}

// SetRank implements RankStore.
func (s *MemoryStore) SetRank(_ context.Context, g model.Granularity, entityID string, score float64) error {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryUpdateLatency)

	if math.IsNaN(score) {
		score = 0
	}
	ls, err := s.rankSet(g)
	if err != nil {
		return err
	}
	ls.mu.Lock()
	ls.set.Set(entityID, score)
	ls.mu.Unlock()
	return nil
}

// Range implements RankStore.
func (s *MemoryStore) Range(_ context.Context, g model.Granularity, offset, limit int) ([]Entry, error) {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryQueryLatency)

	if !validRange(offset, limit) {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	ls, err := s.rankSet(g)
	if err != nil {
		return nil, err
	}
	ls.mu.RLock()
	members := ls.set.RevRange(offset, limit)
	ls.mu.RUnlock()

	out := make([]Entry, len(members))
	for i, m := range members {
		out[i] = Entry{Rank: offset + i + 1, EntityID: m.id, Score: m.score}
	}
	return out, nil
}

// Count implements RankStore.
func (s *MemoryStore) Count(_ context.Context, g model.Granularity) (int, error) {
	ls, err := s.rankSet(g)
	if err != nil {
		return 0, err
	}
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.set.Len(), nil
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.taps.mu.RLock()
	taps := s.taps.set.Len()
	s.taps.mu.RUnlock()
	metrics.UpdateTapRegistrySize(taps)

	for g, ls := range s.ranks {
		ls.mu.RLock()
		n := ls.set.Len()
		ls.mu.RUnlock()
		metrics.UpdateLeaderboardSize(g.String(), n)
	}
}

func observeSince(start time.Time, observe func(float64)) {
	observe(float64(time.Since(start).Microseconds()) / 1000)
}
