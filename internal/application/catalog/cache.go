package catalog

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// readThrough wraps the optional catalog cache. Cache failures are logged
// and the source is queried as if the entry were missing.
type readThrough struct {
	cache   shared.Cache
	ttl     CacheTTL
	metrics CacheMetrics
	logger  *zap.Logger
}

// cached returns the value stored under key, or loads it and stores it for ttl.
// Load errors are never cached.
func cached[T any](ctx context.Context, rt *readThrough, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if rt.cache == nil {
		return load()
	}
	log := logger.Or(ctx, rt.logger)

	raw, found, err := rt.cache.Get(ctx, key)
	if err != nil {
		log.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			rt.metrics.CacheHit(ctx, metricsCacheCatalog)
			return v, nil
		}
		log.Warn("Discarding undecodable cache entry", zap.String("key", key))
	}
	rt.metrics.CacheMiss(ctx, metricsCacheCatalog)

	v, err := load()
	if err != nil {
		return v, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn("Catalog cache encode failed", zap.String("key", key), zap.Error(err))
		return v, nil
	}
	if err := rt.cache.Set(ctx, key, data, ttl); err != nil {
		log.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
