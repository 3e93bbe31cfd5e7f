package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/hotboard/internal/adapters/entitystore"
	"github.com/okian/hotboard/internal/adapters/repository"
	"github.com/okian/hotboard/internal/config"
	"github.com/okian/hotboard/internal/domain/ranking"
)

// OpenStore builds the bucket, tap and rank store selected by cfg.Backend.
// A redis backend is pinged before it is returned.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := repository.NewRedisStore(client, repository.WithKeyPrefix(cfg.RedisPrefix))
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case config.BackendMemory, "":
		return repository.NewMemoryStore(ctx, repository.WithShardCount(cfg.ShardCount)), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// OpenEntityStore builds the primary entity store selected by cfg.EntityDriver.
func OpenEntityStore(ctx context.Context, cfg *config.Config) (EntityStore, error) {
	switch cfg.EntityDriver {
	case config.DriverSQLite, config.DriverPostgres:
		return entitystore.Open(ctx, cfg.EntityDriver, cfg.EntityDSN)
	case config.DriverMemory, "":
		return entitystore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: unknown entity driver %q", config.ErrInvalidConfig, cfg.EntityDriver)
	}
}

// FromConfig opens both stores and returns an unstarted Service configured from cfg.
func FromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open ranking store: %w", err)
	}
	entities, err := OpenEntityStore(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open entity store: %w", err)
	}

	base := []Option{
		WithStore(store),
		WithEntityStore(entities),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.EventQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithEngineOptions(
			ranking.WithConcurrency(cfg.RecomputeConcurrency),
			ranking.WithEntityTimeout(cfg.RecomputeEntityTimeout),
			ranking.WithMaxPageSize(cfg.MaxPageSize),
			ranking.WithMaxPages(cfg.MaxPages),
			ranking.WithTotalCountTTL(cfg.TotalCountTTL),
		),
	}
	return New(append(base, opts...)...), nil
}
