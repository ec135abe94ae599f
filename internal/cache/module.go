package cache

import (
	"context"

	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/types"
	"go.uber.org/fx"
)

// NewCache returns the cache backend selected in configuration
func NewCache(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) Cache {
	if cfg.Cache.Backend == types.CacheBackendRedis {
		log.Infow("using redis cache", "addrs", cfg.Redis.Addrs, "cluster", cfg.Redis.UseCluster)
		rc := NewRedisCache(cfg, log)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return rc.Close()
			},
		})
		return rc
	}

	log.Infow("using in-memory cache")
	return NewInMemoryCache(cfg)
}
