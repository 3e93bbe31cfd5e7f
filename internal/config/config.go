// Package config defines service configuration and its loading from
// defaults, an optional YAML file and HOTBOARD_ environment variables.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Backend and driver names accepted by Validate.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of event recording workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets the size of the event id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Backend selects where buckets, taps and ranks live: memory or redis.
	Backend string `koanf:"backend"`
	// ShardCount configures the number of bucket shards of the memory backend.
	ShardCount    int    `koanf:"shard_count"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// EntityDriver selects the primary entity store: memory, sqlite or postgres.
	EntityDriver string `koanf:"entity_driver"`
	EntityDSN    string `koanf:"entity_dsn"`

	// MaxPageSize caps GET /leaderboard?size.
	MaxPageSize int `koanf:"max_page_size"`
	// MaxPages caps the reported total page count; 0 disables the cap.
	MaxPages int `koanf:"max_pages"`
	// TotalCountTTL is how long a leaderboard size is reused for page counts.
	TotalCountTTL time.Duration `koanf:"total_count_ttl"`

	RecomputeConcurrency   int           `koanf:"recompute_concurrency"`
	RecomputeEntityTimeout time.Duration `koanf:"recompute_entity_timeout"`

	// SchedulerEnabled runs the recompute jobs inside the server process.
	SchedulerEnabled        bool          `koanf:"scheduler_enabled"`
	DailyRecomputeInterval  time.Duration `koanf:"daily_recompute_interval"`
	WeeklyRecomputeInterval time.Duration `koanf:"weekly_recompute_interval"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		EventQueueSize:          100_000,
		WorkerCount:             runtime.NumCPU() * 4,
		DedupeSize:              500_000,
		Backend:                 BackendMemory,
		ShardCount:              8,
		RedisAddr:               "localhost:6379",
		RedisPrefix:             "hotboard",
		EntityDriver:            DriverMemory,
		MaxPageSize:             100,
		MaxPages:                60,
		TotalCountTTL:           7 * 24 * time.Hour,
		RecomputeConcurrency:    16,
		RecomputeEntityTimeout:  2 * time.Second,
		SchedulerEnabled:        true,
		DailyRecomputeInterval:  10 * time.Minute,
		WeeklyRecomputeInterval: time.Hour,
	}
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.EventQueueSize < 1:
		return invalid("queue_size must be positive, got %d", c.EventQueueSize)
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.MaxPageSize < 1:
		return invalid("max_page_size must be positive, got %d", c.MaxPageSize)
	case c.MaxPages < 0:
		return invalid("max_pages must not be negative, got %d", c.MaxPages)
	case c.RecomputeConcurrency < 1:
		return invalid("recompute_concurrency must be positive, got %d", c.RecomputeConcurrency)
	case c.RecomputeEntityTimeout <= 0:
		return invalid("recompute_entity_timeout must be positive")
	}

	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return invalid("redis_addr is required for the redis backend")
		}
	default:
		return invalid("unknown backend %q", c.Backend)
	}

	switch c.EntityDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.EntityDSN == "" {
			return invalid("entity_dsn is required for the %s driver", c.EntityDriver)
		}
	default:
		return invalid("unknown entity_driver %q", c.EntityDriver)
	}

	if c.SchedulerEnabled && (c.DailyRecomputeInterval <= 0 || c.WeeklyRecomputeInterval <= 0) {
		return invalid("recompute intervals must be positive when the scheduler is enabled")
	}
	return nil
}
