package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/hotboard/internal/adapters/repository"
	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/pkg/metrics"
)

// RecordEvent applies one engagement event: the daily bucket of the event
// hour and the weekly bucket of the event day grow by the action weight, and
// the entity's tap moves to at. Actions outside the weight table are ignored.
// A zero at means now.
func (e *Engine) RecordEvent(ctx context.Context, entityID string, action model.Action, at time.Time) error {
	weight, ok := action.Weight()
	if !ok {
		metrics.RecordEventIgnored()
		return nil
	}
	if entityID == "" {
		return ErrEmptyEntityID
	}
	if at.IsZero() {
		at = e.now()
	}

	if w, ok := e.store.(repository.ActivityWriter); ok {
		if err := w.RecordActivity(ctx, entityID, at, weight); err != nil {
			return fmt.Errorf("record %s for %s: %w", action, entityID, err)
		}
		metrics.RecordEventRecorded(action.String())
		return nil
	}

	for _, g := range model.Granularities() {
		if err := e.store.Incr(ctx, g, entityID, g.BucketKey(at), weight); err != nil {
			return fmt.Errorf("increment %s bucket for %s: %w", g, entityID, err)
		}
	}
	if err := e.store.Tap(ctx, entityID, at.Unix()); err != nil {
		return fmt.Errorf("tap %s: %w", entityID, err)
	}
	metrics.RecordEventRecorded(action.String())
	return nil
}
