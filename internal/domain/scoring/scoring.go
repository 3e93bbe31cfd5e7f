// Package scoring turns bucketed engagement counters into a decay-weighted
// rank score.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
)

// BucketReader reads stored bucket values for one entity.
type BucketReader interface {
	// BulkGet returns the values stored under keys. Keys that were never
	// written are absent from the map.
	BulkGet(ctx context.Context, g model.Granularity, entityID string, keys []int64) (map[int64]int64, error)
}

// Scorer computes the rank score of an entity at a point in time.
type Scorer interface {
	Score(ctx context.Context, entityID string, now time.Time, g model.Granularity) (int64, error)
}

// Calculator implements Scorer on top of a BucketReader.
type Calculator struct {
	buckets BucketReader
}

// NewCalculator creates a calculator reading from buckets.
func NewCalculator(buckets BucketReader) *Calculator {
	return &Calculator{buckets: buckets}
}

// Score computes the decay-weighted score of entityID over the lookback
// window of g ending before the bucket that contains now.
func (c *Calculator) Score(ctx context.Context, entityID string, now time.Time, g model.Granularity) (int64, error) {
	keys := g.LookbackKeys(now)
	values, err := c.buckets.BulkGet(ctx, g, entityID, keys)
	if err != nil {
		return 0, fmt.Errorf("read %s buckets for %s: %w", g, entityID, err)
	}
	return Weigh(keys, values), nil
}

// Weigh applies positional weights to the buckets of keys (most recent
// first) that have a value in values.
//
// Absent buckets are removed before weighting, not zero-filled: the oldest
// present bucket gets weight 1, the next present one weight 2, and so on, so
// weights follow position among present data rather than distance from now.
func Weigh(keys []int64, values map[int64]int64) int64 {
	present := make([]int64, 0, len(keys))
	for _, k := range keys {
		if v, ok := values[k]; ok {
			present = append(present, v)
		}
	}

	var score int64
	weight := int64(1)
	for i := len(present) - 1; i >= 0; i-- {
		score += present[i] * weight
		weight++
	}
	return score
}
