package loadtest

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hotboard/internal/domain/model"
)

// generated is one event plus the parsed values needed for local scoring.
type generated struct {
	wire   Event
	entity string
	action model.Action
	at     time.Time
}

// entityPopulation returns n entities whose ids are unique to this run.
func entityPopulation(n int, now time.Time) []model.Entity {
	run := uuid.NewString()[:8]
	out := make([]model.Entity, n)
	for i := range n {
		out[i] = model.Entity{
			ID:        fmt.Sprintf("lt-%s-%05d", run, i),
			Title:     fmt.Sprintf("load test entity %d", i),
			Author:    "loadtest",
			CreatedAt: now.Add(-48 * time.Hour).Truncate(time.Second),
		}
	}
	return out
}

// generateEvents draws cfg.NumEvents events over entities. Popularity is
// skewed toward low indices so the leaderboard has a clear head.
func generateEvents(cfg *Config, entities []model.Entity, now time.Time, r *rand.Rand) []generated {
	out := make([]generated, cfg.NumEvents)
	n := len(entities)
	for i := range out {
		idx := int(r.Float64() * r.Float64() * float64(n))
		action := model.ActionHit
		if r.Float64() < cfg.ReplyRatio {
			action = model.ActionReply
		}
		at := now.Add(-time.Duration(r.Int64N(int64(cfg.Spread)))).Truncate(time.Second)
		out[i] = generated{
			wire: Event{
				EventID:  uuid.NewString(),
				EntityID: entities[idx].ID,
				Action:   string(action),
				TS:       at.UTC().Format(time.RFC3339),
			},
			entity: entities[idx].ID,
			action: action,
			at:     at,
		}
	}
	return out
}
