package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/pkg/logger"
)

const (
	directoryPermission = 0o750
	seedChunk           = 500
	drainPoll           = 200 * time.Millisecond
	drainStableReads    = 2
	percentMultiplier   = 100
)

// Run executes the complete load test against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg.withDefaults()
	board, err := model.ParseGranularity(cfg.Board)
	if err != nil {
		return nil, err //nolint:wrapcheck // already names the bad value
	}
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting hotboard load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("events", cfg.NumEvents),
		logger.Int("entities", cfg.NumEntities),
		logger.Int("workers", cfg.Workers),
		logger.String("board", board.String()))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	now := time.Now().UTC()
	entities := entityPopulation(cfg.NumEntities, now)
	if cfg.Seed != nil {
		if err := seedEntities(ctx, cfg.Seed, entities); err != nil {
			return stats, fmt.Errorf("seed entities: %w", err)
		}
		log.Info(ctx, "entities seeded", logger.Int("count", len(entities)))
	}

	r := rand.New(rand.NewPCG(uint64(now.UnixNano()), uint64(cfg.NumEvents))) //nolint:gosec // load shape, not security
	events := generateEvents(cfg, entities, now, r)
	stats.EventsGenerated = len(events)

	accepted := submitEvents(ctx, cfg, client, events, stats)

	if err := waitForDrain(ctx, client, cfg.DrainWait); err != nil {
		log.Warn(ctx, "queue did not drain", logger.Error(err))
	}

	if cfg.Recompute {
		report, err := client.Recompute(ctx, board.String(), now)
		if err != nil {
			return stats, fmt.Errorf("recompute: %w", err)
		}
		stats.Report = &ReportSummary{
			Candidates: report.Candidates,
			Scored:     report.Scored,
			Skipped:    report.Skipped,
			Failed:     report.Failed,
		}
	}

	page, err := client.Leaderboard(ctx, board.String(), 1, cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(page.Entities)
	if len(page.Entities) == 0 {
		log.Warn(ctx, "leaderboard is empty; were the entities imported?")
	}

	mismatches, err := verifyPage(ctx, page, expectedScores(accepted, board, now), cfg.Verbose)
	if err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	stats.ScoreMismatches = mismatches

	if cfg.OutputFile != "" {
		if err := saveEventsToFile(cfg.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

func seedEntities(ctx context.Context, seed EntitySeeder, entities []model.Entity) error {
	for start := 0; start < len(entities); start += seedChunk {
		end := min(start+seedChunk, len(entities))
		if err := seed.Upsert(ctx, entities[start:end]...); err != nil {
			return err //nolint:wrapcheck // wrapped by caller
		}
	}
	return nil
}

// submitEvents posts events with cfg.Workers concurrent submitters and
// returns the ones the server accepted.
func submitEvents(ctx context.Context, cfg *Config, client *Client, events []generated, stats *Stats) []generated {
	log := logger.Get().Named("loadtest")
	log.Info(ctx, "submitting events", logger.Int("count", len(events)), logger.Int("workers", cfg.Workers))

	var successful, duplicate, rejected, failed, submitted atomic.Int64
	ok := make([]bool, len(events))

	indices := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				ack, err := client.PostEvent(ctx, events[i].wire)
				submitted.Add(1)
				switch {
				case errors.Is(err, ErrBackpressure):
					rejected.Add(1)
				case err != nil:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "event failed", logger.String("event_id", events[i].wire.EventID), logger.Error(err))
					}
				case ack.Duplicate:
					duplicate.Add(1)
				default:
					successful.Add(1)
					ok[i] = true
				}
			}
		}()
	}

feed:
	for i := range events {
		select {
		case <-ctx.Done():
			break feed
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	stats.EventsSubmitted = int(submitted.Load())
	stats.EventsSuccessful = int(successful.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsRejected = int(rejected.Load())
	stats.EventsFailed = int(failed.Load())

	out := make([]generated, 0, stats.EventsSuccessful)
	for i, e := range events {
		if ok[i] {
			out = append(out, e)
		}
	}
	return out
}

// waitForDrain polls /stats until the server queue has been empty on
// drainStableReads consecutive reads.
func waitForDrain(ctx context.Context, client *Client, limit time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	empty := 0
	for {
		stats, err := client.Stats(ctx)
		if err != nil {
			return err
		}
		n, ok := stats["queueLength"].(float64)
		if !ok {
			return nil
		}
		if n == 0 {
			empty++
		} else {
			empty = 0
		}
		if empty >= drainStableReads {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck // deadline is the signal
		case <-ticker.C:
		}
	}
}

// saveEventsToFile writes the generated events as a JSON array.
func saveEventsToFile(filename string, events []generated) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	wire := make([]Event, len(events))
	for i, e := range events {
		wire[i] = e.wire
	}
	b, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	if err := os.WriteFile(filename, b, 0o600); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * percentMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Named("loadtest").Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsRejected", stats.EventsRejected),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Int("scoreMismatches", stats.ScoreMismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
