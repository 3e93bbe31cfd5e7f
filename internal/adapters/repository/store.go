// Package repository holds the ranking state: bucketed score counters, the
// tap registry and the per-granularity leaderboards.
package repository

import (
	"context"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank     int
	EntityID string
	Score    float64
}

// BucketStore accumulates engagement score per entity and bucket.
type BucketStore interface {
	// Incr atomically adds delta to the bucket key of entityID's map for g.
	Incr(ctx context.Context, g model.Granularity, entityID string, key int64, delta int64) error
	// BulkGet returns the stored values for keys. Keys never written are
	// absent from the result.
	BulkGet(ctx context.Context, g model.Granularity, entityID string, keys []int64) (map[int64]int64, error)
}

// TapRegistry is the global "entity was active at" index.
type TapRegistry interface {
	// Tap overwrites the last-activity time of entityID.
	Tap(ctx context.Context, entityID string, at int64) error
	// RangeByTime returns ids whose last tap lies in [from, to].
	RangeByTime(ctx context.Context, from, to int64) ([]string, error)
}

// RankStore keeps one ranked index per granularity.
type RankStore interface {
	// SetRank overwrites the score of entityID in the g leaderboard.
	SetRank(ctx context.Context, g model.Granularity, entityID string, score float64) error
	// Range returns up to limit entries, score descending, skipping offset.
	// Rank is the 1-based position in the whole leaderboard.
	Range(ctx context.Context, g model.Granularity, offset, limit int) ([]Entry, error)
	// Count returns the number of ranked entities in g.
	Count(ctx context.Context, g model.Granularity) (int, error)
}

// Store is a backend providing every part of the ranking state.
type Store interface {
	BucketStore
	TapRegistry
	RankStore
	Close() error
}

// ActivityWriter is implemented by backends that can write both bucket
// increments and the tap of one event in a single round trip. Each write
// stays atomic per key; the batch as a whole is not a transaction.
type ActivityWriter interface {
	RecordActivity(ctx context.Context, entityID string, at time.Time, weight int64) error
}

func validRange(offset, limit int) bool {
	return offset >= 0 && limit >= 1
}
