package ranking

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/domain/types"
	"github.com/okian/hotboard/pkg/logger"
	"github.com/okian/hotboard/pkg/metrics"
)

// RecomputeDaily rescores every entity tapped in the 24 hours before now.
func (e *Engine) RecomputeDaily(ctx context.Context, now time.Time) (types.RecomputeReport, error) {
	return e.Recompute(ctx, model.Daily, now)
}

// RecomputeWeekly rescores every entity tapped in the 7 days before now.
func (e *Engine) RecomputeWeekly(ctx context.Context, now time.Time) (types.RecomputeReport, error) {
	return e.Recompute(ctx, model.Weekly, now)
}

// Recompute rescores the recently active entities of g and overwrites their
// leaderboard entries. Candidates missing from the primary store are skipped.
// A failure on one entity is logged and counted; the run fails only when the
// candidate or existence lookups fail, or when every entity failed.
// A zero now means the engine clock.
func (e *Engine) Recompute(ctx context.Context, g model.Granularity, now time.Time) (types.RecomputeReport, error) {
	start := time.Now()
	if now.IsZero() {
		now = e.now()
	}
	report := types.RecomputeReport{Granularity: g.String(), Now: now.Unix()}

	finish := func(outcome string) {
		report.DurationMS = float64(time.Since(start).Microseconds()) / 1000
		metrics.RecordRecomputeRun(g.String(), outcome, report.DurationMS)
	}

	candidates, err := e.store.RangeByTime(ctx, now.Add(-g.Window()).Unix(), now.Unix())
	if err != nil {
		finish("error")
		return report, fmt.Errorf("recompute %s: list candidates: %w", g, err)
	}
	report.Candidates = len(candidates)

	existing, err := e.existing(ctx, candidates)
	if err != nil {
		finish("error")
		return report, fmt.Errorf("recompute %s: %w", g, err)
	}
	report.Skipped = len(candidates) - len(existing)

	var scored, failed atomic.Int64
	var eg errgroup.Group
	eg.SetLimit(e.concurrency)
	for _, id := range existing {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := e.rescore(ctx, g, id, now); err != nil {
				failed.Add(1)
				metrics.RecordErrorByComponent("recompute", "entity")
				e.log.Warn(ctx, "rescore failed",
					logger.String("granularity", g.String()),
					logger.String("entity_id", id),
					logger.Error(err))
				return nil
			}
			scored.Add(1)
			return nil
		})
	}
	_ = eg.Wait()

	report.Scored = int(scored.Load())
	report.Failed = int(failed.Load())
	if err := ctx.Err(); err != nil {
		finish("canceled")
		return report, fmt.Errorf("recompute %s: %w", g, err)
	}
	if len(existing) > 0 && report.Failed == len(existing) {
		finish("error")
		return report, fmt.Errorf("recompute %s: %w", g, ErrRecomputeFailed)
	}

	finish("ok")
	metrics.RecordRecomputeResult(g.String(), report.Candidates, report.Scored, report.Skipped, report.Failed, now.Unix())
	e.log.Info(ctx, "recompute finished",
		logger.String("granularity", g.String()),
		logger.Int64("now", report.Now),
		logger.Int("candidates", report.Candidates),
		logger.Int("scored", report.Scored),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", report.Failed),
		logger.Float64("duration_ms", report.DurationMS))
	return report, nil
}

func (e *Engine) rescore(ctx context.Context, g model.Granularity, id string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, e.entityTimeout)
	defer cancel()

	score, err := e.scorer.Score(ctx, id, now, g)
	if err != nil {
		return err
	}
	if err := e.store.SetRank(ctx, g, id, float64(score)); err != nil {
		return fmt.Errorf("set %s rank for %s: %w", g, id, err)
	}
	return nil
}

// existing keeps the ids of candidates that are present in the primary
// store, preserving candidate order.
func (e *Engine) existing(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	present := make(map[string]struct{}, len(candidates))
	for lo := 0; lo < len(candidates); lo += e.findChunkSize {
		hi := min(lo+e.findChunkSize, len(candidates))
		found, err := e.finder.FindByIDs(ctx, candidates[lo:hi])
		if err != nil {
			return nil, fmt.Errorf("find entities: %w", err)
		}
		for _, ent := range found {
			present[ent.ID] = struct{}{}
		}
	}

	out := make([]string, 0, len(present))
	for _, id := range candidates {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}
