package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const lookupKeyPattern = "lookup:%s"

// RedisCache backs the result cache with redis so cached lookups survive a
// process restart. Redis errors degrade to cache misses; the caller falls
// through to the upstream sources.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(client *redis.Client, logger *logrus.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, fmt.Sprintf(lookupKeyPattern, key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("redis cache read failed")
		}
		return "", false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Set(ctx, fmt.Sprintf(lookupKeyPattern, key), value, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("redis cache write failed")
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, fmt.Sprintf(lookupKeyPattern, key)).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("redis cache delete failed")
	}
}
