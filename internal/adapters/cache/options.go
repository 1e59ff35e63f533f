package cache

import (
	"time"

	"github.com/okian/focusengine/pkg/logger"
)

// StoreOption applies a configuration option to the StoreCache.
type StoreOption func(*StoreCache)

// WithStoreClock overrides the time source used for expiry checks.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(c *StoreCache) {
		if now != nil {
			c.now = now
		}
	}
}

// RedisOption applies a configuration option to the RedisCache.
type RedisOption func(*RedisCache)

// WithKeyPrefix sets the prefix of every key the cache writes.
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithRedisLogger sets the cache logger.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(c *RedisCache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBreaker tunes the circuit breaker: it opens after failures consecutive
// errors and half-opens after timeout.
func WithBreaker(failures uint32, timeout time.Duration) RedisOption {
	return func(c *RedisCache) {
		if failures > 0 {
			c.breakerFailures = failures
		}
		if timeout > 0 {
			c.breakerTimeout = timeout
		}
	}
}

// WithRedisClock overrides the time source used for expiry.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(c *RedisCache) {
		if now != nil {
			c.now = now
		}
	}
}
