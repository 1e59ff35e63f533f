package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/okian/focusengine/internal/domain/types"
	"github.com/okian/focusengine/pkg/logger"
	"github.com/okian/focusengine/pkg/metrics"
)

const (
	backendRedis     = "redis"
	defaultKeyPrefix = "focus:player:"
	scanBatch        = 200
)

// RedisCache keeps focus results as JSON values with a native TTL. Calls go
// through a circuit breaker; while it is open every Get is a miss and every
// Put is dropped.
type RedisCache struct {
	rdb     redis.UniversalClient
	breaker *gobreaker.CircuitBreaker
	log     logger.Logger
	prefix  string
	now     func() time.Time

	breakerFailures uint32
	breakerTimeout  time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache wraps an existing client.
func NewRedisCache(rdb redis.UniversalClient, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		rdb:             rdb,
		log:             logger.NamedOrNop("cache"),
		prefix:          defaultKeyPrefix,
		now:             time.Now,
		breakerFailures: 5,
		breakerTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "focus-cache-redis",
		Timeout: c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.breakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from_state", from.String()),
				logger.String("to_state", to.String()),
			)
		},
	})
	return c
}

// NewRedisCacheFromURL parses a redis:// URL and connects lazily.
func NewRedisCacheFromURL(url string, opts ...RedisOption) (*RedisCache, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisCache(redis.NewClient(o), opts...), nil
}

func (c *RedisCache) key(playerID string) string { return c.prefix + playerID }

func breakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, playerID string) (*types.PlayerFocus, bool, error) {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		b, err := c.rdb.Get(ctx, c.key(playerID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return []byte(nil), nil
		}
		return b, err
	})
	switch {
	case breakerOpen(err):
		metrics.RecordCacheOperation(backendRedis, "breaker_open")
		return nil, false, nil
	case err != nil:
		metrics.RecordCacheOperation(backendRedis, "error")
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	b, _ := v.([]byte)
	if len(b) == 0 {
		metrics.RecordCacheOperation(backendRedis, "miss")
		return nil, false, nil
	}
	var focus types.PlayerFocus
	if err := json.Unmarshal(b, &focus); err != nil {
		metrics.RecordCacheOperation(backendRedis, "error")
		return nil, false, fmt.Errorf("decode cached focus: %w", err)
	}
	if c.now().After(focus.ExpiresAt) {
		metrics.RecordCacheOperation(backendRedis, "expired")
		return nil, false, nil
	}
	metrics.RecordCacheOperation(backendRedis, "hit")
	return &focus, true, nil
}

// Put implements Cache.
func (c *RedisCache) Put(ctx context.Context, playerID string, focus types.PlayerFocus, ttl time.Duration) error {
	now := c.now()
	focus.PlayerID = playerID
	focus.ExpiresAt = expiry(focus, now, ttl)
	remaining := focus.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return nil
	}
	b, err := json.Marshal(focus)
	if err != nil {
		return fmt.Errorf("encode focus: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, c.key(playerID), b, remaining).Err()
	})
	switch {
	case breakerOpen(err):
		metrics.RecordCacheOperation(backendRedis, "breaker_open")
		return nil
	case err != nil:
		metrics.RecordCacheOperation(backendRedis, "error")
		return fmt.Errorf("redis set: %w", err)
	}
	metrics.RecordCacheOperation(backendRedis, "put")
	return nil
}

// Invalidate implements Cache by deleting every key under the prefix.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		iter := c.rdb.Scan(ctx, 0, c.prefix+"*", scanBatch).Iterator()
		batch := make([]string, 0, scanBatch)
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == scanBatch {
				if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
					return nil, err
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		if len(batch) > 0 {
			return nil, c.rdb.Del(ctx, batch...).Err()
		}
		return nil, nil
	})
	if err != nil {
		metrics.RecordCacheOperation(backendRedis, "error")
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}

// State reports the circuit breaker state.
func (c *RedisCache) State() gobreaker.State { return c.breaker.State() }

// Close closes the underlying client.
func (c *RedisCache) Close() error { return c.rdb.Close() }
