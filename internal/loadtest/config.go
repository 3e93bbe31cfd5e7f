// Package loadtest drives a running hotboard server with generated events
// and checks the resulting leaderboard against a local computation.
package loadtest

import (
	"context"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumEvents   int           // Number of events to generate
	NumEntities int           // Size of the entity population
	ReplyRatio  float64       // Share of events that are replies, 0..1
	Spread      time.Duration // Events are spread over [now-Spread, now)
	Workers     int           // Number of concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	DrainWait   time.Duration // Upper bound on waiting for the server queue to drain
	Board       string        // Leaderboard checked after the run: daily or weekly
	TopN        int           // Rows read back from the leaderboard
	Recompute   bool          // Trigger a recompute before reading back
	OutputFile  string        // Optional JSON dump of generated events
	Verbose     bool          // Log every failure

	// Seed, when set, receives the generated entity population before any
	// event is sent so the leaderboard can materialize them.
	Seed EntitySeeder
}

// EntitySeeder writes entities to the primary store.
type EntitySeeder interface {
	Upsert(ctx context.Context, entities ...model.Entity) error
}

// Stats holds test statistics.
type Stats struct {
	EventsGenerated    int
	EventsSubmitted    int
	EventsSuccessful   int
	EventsDuplicate    int
	EventsRejected     int
	EventsFailed       int
	LeaderboardEntries int
	ScoreMismatches    int
	Report             *ReportSummary
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// ReportSummary is the part of the recompute report surfaced in Stats.
type ReportSummary struct {
	Candidates int
	Scored     int
	Skipped    int
	Failed     int
}

func (c *Config) withDefaults() {
	if c.NumEvents <= 0 {
		c.NumEvents = 10_000
	}
	if c.NumEntities <= 0 {
		c.NumEntities = 500
	}
	if c.Spread <= 0 {
		c.Spread = 24 * time.Hour
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.DrainWait <= 0 {
		c.DrainWait = 2 * time.Minute
	}
	if c.Board == "" {
		c.Board = model.Daily.String()
	}
	if c.TopN <= 0 {
		c.TopN = 50
	}
	if c.ReplyRatio < 0 {
		c.ReplyRatio = 0
	}
	if c.ReplyRatio > 1 {
		c.ReplyRatio = 1
	}
}
