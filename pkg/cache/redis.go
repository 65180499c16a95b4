package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultOpTimeout bounds every Redis call so a stalled store reads as a miss.
	DefaultOpTimeout = 150 * time.Millisecond

	scanBatch = 500
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	// OpTimeout is the deadline applied to each store call (default: 150ms).
	OpTimeout time.Duration
}

// RedisStore is the shared Store backed by Redis.
type RedisStore struct {
	redis     *redis.Client
	opTimeout time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client, opts RedisOptions) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	return &RedisStore{
		redis:     redisClient,
		opTimeout: opts.OpTimeout,
	}
}

// Get retrieves the raw value for key.
// Returns ErrCacheMiss if the key doesn't exist (Redis expires keys itself).
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues("redis").Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: redis get: %v", ErrUnavailable, err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return data, nil
}

// GetWithTTL returns the value for key and its remaining lifetime (PTTL).
func (s *RedisStore) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, 0, fmt.Errorf("%w: redis get: %v", ErrUnavailable, err)
	}

	data, err := get.Bytes()
	if err != nil {
		CacheMisses.WithLabelValues("redis").Inc()
		return nil, 0, ErrCacheMiss
	}

	// PTTL: -1 means no expiry, -2 means the key is already gone
	remaining := ttl.Val()
	if remaining == -2 {
		remaining = 0
	}

	CacheHits.WithLabelValues("redis").Inc()
	return data, remaining, nil
}

// Set stores value with the given TTL. A non-positive TTL is a no-op.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("%w: redis set: %v", ErrUnavailable, err)
	}
	return nil
}

// DelPattern walks the keyspace with SCAN and deletes matches in batches.
// The scan may run longer than a single op timeout, so each round trip gets its own deadline.
func (s *RedisStore) DelPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)

	for {
		keys, next, err := s.scan(ctx, cursor, pattern)
		if err != nil {
			CacheErrors.WithLabelValues("del").Inc()
			return deleted, fmt.Errorf("%w: redis scan %q: %v", ErrUnavailable, pattern, err)
		}

		if len(keys) > 0 {
			n, err := s.del(ctx, keys)
			if err != nil {
				CacheErrors.WithLabelValues("del").Inc()
				return deleted, fmt.Errorf("%w: redis del: %v", ErrUnavailable, err)
			}
			deleted += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	CacheDeletedKeys.Add(float64(deleted))
	return deleted, nil
}

func (s *RedisStore) scan(ctx context.Context, cursor uint64, pattern string) ([]string, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
}

func (s *RedisStore) del(ctx context.Context, keys []string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.redis.Del(ctx, keys...).Result()
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		CacheErrors.WithLabelValues("ping").Inc()
		return fmt.Errorf("%w: redis ping: %v", ErrUnavailable, err)
	}
	return nil
}
