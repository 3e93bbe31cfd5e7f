package loadtest

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/domain/scoring"
	"github.com/okian/hotboard/internal/domain/types"
	"github.com/okian/hotboard/pkg/logger"
)

// expectedScores folds the accepted events into per-entity scores the same
// way a recompute at now would.
func expectedScores(events []generated, g model.Granularity, now time.Time) map[string]float64 {
	buckets := map[string]map[int64]int64{}
	for _, e := range events {
		w, ok := e.action.Weight()
		if !ok {
			continue
		}
		m := buckets[e.entity]
		if m == nil {
			m = map[int64]int64{}
			buckets[e.entity] = m
		}
		m[g.BucketKey(e.at)] += w
	}
	keys := g.LookbackKeys(now)
	out := make(map[string]float64, len(buckets))
	for id, m := range buckets {
		out[id] = float64(scoring.Weigh(keys, m))
	}
	return out
}

// verifyPage checks ordering and compares each row with the local score.
// It returns the number of rows whose score differs.
func verifyPage(ctx context.Context, page types.Page, expected map[string]float64, verbose bool) (int, error) {
	log := logger.Get().Named("loadtest")
	for i := 1; i < len(page.Entities); i++ {
		prev, cur := page.Entities[i-1], page.Entities[i]
		if cur.Score > prev.Score {
			return 0, fmt.Errorf("%w: rank %d (%.0f) above rank %d (%.0f)", ErrUnsorted, cur.Rank, cur.Score, prev.Rank, prev.Score)
		}
		if cur.Rank <= prev.Rank {
			return 0, fmt.Errorf("%w: rank %d follows rank %d", ErrUnsorted, cur.Rank, prev.Rank)
		}
	}

	mismatches := 0
	for _, row := range page.Entities {
		want, ok := expected[row.Entity.ID]
		if !ok || want != row.Score {
			mismatches++
			if verbose {
				log.Warn(ctx, "score mismatch",
					logger.String("entity", row.Entity.ID),
					logger.Float64("got", row.Score),
					logger.Float64("want", want))
			}
		}
	}
	return mismatches, nil
}
