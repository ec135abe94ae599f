package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
)

// RedisCache implements Cache on a redis single node or cluster
type RedisCache struct {
	client  redis.UniversalClient
	enabled bool
	logger  *logger.Logger
}

// NewRedisCache connects to the configured redis deployment
func NewRedisCache(cfg *config.Configuration, logger *logger.Logger) *RedisCache {
	var rdb redis.UniversalClient

	if cfg.Redis.UseCluster && len(cfg.Redis.Addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
	} else {
		addr := "localhost:6379"
		if len(cfg.Redis.Addrs) > 0 {
			addr = cfg.Redis.Addrs[0]
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	return NewRedisCacheWithClient(rdb, cfg.Cache.Enabled, logger)
}

func NewRedisCacheWithClient(client redis.UniversalClient, enabled bool, logger *logger.Logger) *RedisCache {
	return &RedisCache{client: client, enabled: enabled, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}
	span := StartCacheSpan(ctx, "redis", "get", map[string]interface{}{"key": key})
	defer FinishSpan(span)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			SetSpanError(span, err)
			c.logger.Warnw("redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	SetSpanSuccess(span)
	return raw, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration == 0 {
		expiration = DefaultExpiration
	}
	if err := c.client.Set(ctx, key, value, expiration).Err(); err != nil {
		c.logger.Warnw("redis set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if !c.enabled {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warnw("redis delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix scans for matching keys. Only meant for small keyspaces.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	if !c.enabled {
		return
	}
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warnw("redis scan failed", "prefix", prefix, "error", err)
	}
}

// Close releases the redis connections
func (c *RedisCache) Close() error {
	return c.client.Close()
}
