// Package cache implements application.Cache on Redis.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/pkg/metrics"
)

// RedisCache degrades every failure to a miss or a no-op. Each call is
// bounded by timeout.
type RedisCache struct {
	client  redis.UniversalClient
	timeout time.Duration
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

func NewRedisCache(client redis.UniversalClient, timeout time.Duration, logger *logrus.Logger, m *metrics.Metrics) *RedisCache {
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	return &RedisCache{client: client, timeout: timeout, logger: logger, metrics: m}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.client == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.degraded("get", key, err)
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.degraded("put", key, err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.degraded("invalidate", key, err)
	}
}

// Increment runs INCR and EXPIRE NX in one transaction, so a counter always
// carries a ttl and its window starts on the first hit.
func (c *RedisCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, bool) {
	if c.client == nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		if ttl > 0 {
			p.ExpireNX(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		c.degraded("increment", key, err)
		return 0, false
	}
	return incr.Val(), true
}

func (c *RedisCache) degraded(op, key string, err error) {
	c.metrics.IncrementCacheError(op)
	if c.logger != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{"op": op, "key": key}).Warn("cache unavailable, continuing without it")
	}
}
