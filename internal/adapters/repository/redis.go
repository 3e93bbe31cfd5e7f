package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
	"github.com/okian/hotboard/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the ranking state in Redis:
//
//	<prefix>:entity:<id>:daily_scores   hash   hour bucket  -> score
//	<prefix>:entity:<id>:weekly_scores  hash   day bucket   -> score
//	<prefix>:tap_times                  zset   id -> last tap unix time
//	<prefix>:daily_ranks                zset   id -> daily score
//	<prefix>:weekly_ranks               zset   id -> weekly score
//
// Every write is a single-key Redis command and therefore atomic.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) bucketKey(g model.Granularity, entityID string) string {
	return s.prefix + ":entity:" + entityID + ":" + g.String() + "_scores"
}

func (s *RedisStore) rankKey(g model.Granularity) string {
	return s.prefix + ":" + g.String() + "_ranks"
}

func (s *RedisStore) tapKey() string {
	return s.prefix + ":tap_times"
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Incr implements BucketStore with HINCRBY.
func (s *RedisStore) Incr(ctx context.Context, g model.Granularity, entityID string, key int64, delta int64) error {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryUpdateLatency)

	if err := checkGranularity(g); err != nil {
		return err
	}
	if err := s.client.HIncrBy(ctx, s.bucketKey(g, entityID), strconv.FormatInt(key, 10), delta).Err(); err != nil {
		return unavailable("incr bucket", err)
	}
	return nil
}

// BulkGet implements BucketStore with HMGET.
func (s *RedisStore) BulkGet(ctx context.Context, g model.Granularity, entityID string, keys []int64) (map[int64]int64, error) {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryQueryLatency)

	if err := checkGranularity(g); err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	fields := make([]string, len(keys))
	for i, k := range keys {
		fields[i] = strconv.FormatInt(k, 10)
	}
	vals, err := s.client.HMGet(ctx, s.bucketKey(g, entityID), fields...).Result()
	if err != nil {
		return nil, unavailable("read buckets", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // never written
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse bucket %s of %s: %w", fields[i], entityID, err)
		}
		out[keys[i]] = n
	}
	return out, nil
}

// Tap implements TapRegistry with ZADD.
func (s *RedisStore) Tap(ctx context.Context, entityID string, at int64) error {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryUpdateLatency)

	if err := s.client.ZAdd(ctx, s.tapKey(), redis.Z{Score: float64(at), Member: entityID}).Err(); err != nil {
		return unavailable("tap", err)
	}
	return nil
}

// RangeByTime implements TapRegistry with ZRANGEBYSCORE.
func (s *RedisStore) RangeByTime(ctx context.Context, from, to int64) ([]string, error) {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryQueryLatency)

	ids, err := s.client.ZRangeByScore(ctx, s.tapKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(from, 10),
		Max: strconv.FormatInt(to, 10),
	}).Result()
	if err != nil {
		return nil, unavailable("range taps", err)
	}
	return ids, nil
}

// RecordActivity implements ActivityWriter: both bucket increments and the
// tap go out in one pipeline.
func (s *RedisStore) RecordActivity(ctx context.Context, entityID string, at time.Time, weight int64) error {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryUpdateLatency)

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, g := range model.Granularities() {
			pipe.HIncrBy(ctx, s.bucketKey(g, entityID), strconv.FormatInt(g.BucketKey(at), 10), weight)
		}
		pipe.ZAdd(ctx, s.tapKey(), redis.Z{Score: float64(at.Unix()), Member: entityID})
		return nil
	})
	if err != nil {
		return unavailable("record activity", err)
	}
	return nil
}

// SetRank implements RankStore with ZADD.
func (s *RedisStore) SetRank(ctx context.Context, g model.Granularity, entityID string, score float64) error {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryUpdateLatency)

	if err := checkGranularity(g); err != nil {
		return err
	}
	if err := s.client.ZAdd(ctx, s.rankKey(g), redis.Z{Score: score, Member: entityID}).Err(); err != nil {
		return unavailable("set rank", err)
	}
	return nil
}

// Range implements RankStore with ZREVRANGE.
func (s *RedisStore) Range(ctx context.Context, g model.Granularity, offset, limit int) ([]Entry, error) {
	start := time.Now()
	defer observeSince(start, metrics.RecordRepositoryQueryLatency)

	if !validRange(offset, limit) {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	if err := checkGranularity(g); err != nil {
		return nil, err
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.rankKey(g), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, unavailable("range ranks", err)
	}
	out := make([]Entry, 0, len(zs))
	for i, z := range zs {
		id, _ := z.Member.(string)
		out = append(out, Entry{Rank: offset + i + 1, EntityID: id, Score: z.Score})
	}
	return out, nil
}

// Count implements RankStore with ZCARD.
func (s *RedisStore) Count(ctx context.Context, g model.Granularity) (int, error) {
	if err := checkGranularity(g); err != nil {
		return 0, err
	}
	n, err := s.client.ZCard(ctx, s.rankKey(g)).Result()
	if err != nil {
		return 0, unavailable("count ranks", err)
	}
	return int(n), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

func unavailable(op string, err error) error {
	metrics.RecordErrorByComponent("repository", "redis_error")
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
