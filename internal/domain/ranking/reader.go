package ranking

import (
	"context"
	"fmt"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/internal/domain/types"
	"github.com/okian/hotboard/pkg/metrics"
)

// TopN returns one page of the g leaderboard with entities materialized from
// the primary store. Pages are 1-based. Ranked ids whose entity no longer
// exists are dropped from the page; the others keep their leaderboard rank.
func (e *Engine) TopN(ctx context.Context, g model.Granularity, page, pageSize int) (types.Page, error) {
	if page < 1 || pageSize < 1 || pageSize > e.maxPageSize {
		return types.Page{}, fmt.Errorf("%w: page=%d size=%d", ErrInvalidPage, page, pageSize)
	}

	out := types.Page{
		Granularity: g.String(),
		Page:        page,
		PageSize:    pageSize,
		Entities:    []types.RankedEntity{},
	}

	entries, err := e.store.Range(ctx, g, (page-1)*pageSize, pageSize)
	if err != nil {
		return out, fmt.Errorf("read %s leaderboard: %w", g, err)
	}

	if len(entries) > 0 {
		ids := make([]string, len(entries))
		for i, en := range entries {
			ids[i] = en.EntityID
		}
		found, err := e.finder.FindByIDs(ctx, ids)
		if err != nil {
			return out, fmt.Errorf("load %s leaderboard entities: %w", g, err)
		}
		byID := make(map[string]model.Entity, len(found))
		for _, ent := range found {
			byID[ent.ID] = ent
		}
		for _, en := range entries {
			ent, ok := byID[en.EntityID]
			if !ok {
				continue
			}
			out.Entities = append(out.Entities, types.RankedEntity{Rank: en.Rank, Score: en.Score, Entity: ent})
		}
		metrics.RecordLeaderboardDropped(g.String(), len(entries)-len(out.Entities))
	}

	total, err := e.totalCount(ctx, g)
	if err != nil {
		return out, err
	}
	out.TotalPages = (total + pageSize - 1) / pageSize
	if e.maxPages > 0 && out.TotalPages > e.maxPages {
		out.TotalPages = e.maxPages
	}

	metrics.RecordLeaderboardRead(g.String())
	return out, nil
}

// totalCount returns the leaderboard size, reusing a value younger than the TTL.
func (e *Engine) totalCount(ctx context.Context, g model.Granularity) (int, error) {
	now := e.now()

	e.countMu.Lock()
	c, ok := e.counts[g]
	e.countMu.Unlock()
	if ok && now.Sub(c.fetched) < e.countTTL {
		return c.n, nil
	}

	n, err := e.store.Count(ctx, g)
	if err != nil {
		return 0, fmt.Errorf("count %s leaderboard: %w", g, err)
	}

	e.countMu.Lock()
	e.counts[g] = cachedCount{n: n, fetched: now}
	e.countMu.Unlock()
	return n, nil
}

// InvalidateCounts drops cached leaderboard sizes.
func (e *Engine) InvalidateCounts() {
	e.countMu.Lock()
	clear(e.counts)
	e.countMu.Unlock()
}
