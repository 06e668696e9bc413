package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// DefaultNamespace prefixes every cache key stored in Redis
const DefaultNamespace = "storefront:"

const dialTimeout = 5 * time.Second

// Factory builds the response cache and the IPN idempotency store from configuration.
// Both share one Redis client, which the factory owns.
type Factory struct {
	cacheConfig config.CacheConfig
	redisConfig config.RedisConfig
	logger      *zap.Logger
	namespace   string

	client *redis.Client
	memory *MemoryCache
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithNamespace overrides the Redis key namespace
func WithNamespace(ns string) FactoryOption {
	return func(f *Factory) {
		f.namespace = ns
	}
}

// NewFactory creates a new factory
func NewFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cacheConfig: cacheCfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
		namespace:   DefaultNamespace,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// usesRedis reports whether the configuration asks for Redis
func (f *Factory) usesRedis() bool {
	return f.cacheConfig.Driver == "redis"
}

// redisClient dials Redis once and reuses the client
func (f *Factory) redisClient(ctx context.Context) (*redis.Client, error) {
	if f.client != nil {
		return f.client, nil
	}
	client, err := DialRedis(ctx, &redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, dialTimeout)
	if err != nil {
		return nil, err
	}
	f.client = client
	return client, nil
}

func (f *Factory) memoryCache() *MemoryCache {
	if f.memory == nil {
		f.memory = NewMemoryCache(time.Minute)
	}
	return f.memory
}

// Cache returns the response cache.
// When Redis is configured but unreachable the factory falls back to memory
// if allow_memory_fallback is set, and fails otherwise.
func (f *Factory) Cache(ctx context.Context) (shared.Cache, error) {
	if !f.usesRedis() {
		f.logger.Info("using in-memory response cache")
		return f.memoryCache(), nil
	}

	client, err := f.redisClient(ctx)
	if err == nil {
		f.logger.Info("using Redis response cache", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisCache(client, f.namespace+"cache:"), nil
	}
	if !f.cacheConfig.AllowMemoryFallback {
		return nil, fmt.Errorf("Redis required for the response cache but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory response cache", zap.Error(err))
	return f.memoryCache(), nil
}

// IdempotencyStore returns the IPN idempotency store, following the same fallback rules as Cache.
// The in-memory store does not share state across instances, which can lead
// to duplicate IPN processing in distributed deployments.
func (f *Factory) IdempotencyStore(ctx context.Context) (shared.IdempotencyStore, error) {
	if !f.usesRedis() {
		f.logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStoreOn(f.memoryCache()), nil
	}

	client, err := f.redisClient(ctx)
	if err == nil {
		f.logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, f.namespace+"ipn:"), nil
	}
	if !f.cacheConfig.AllowMemoryFallback {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"This may cause duplicate IPN processing in distributed deployments.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStoreOn(f.memoryCache()), nil
}

// Close releases the Redis client and the memory cache
func (f *Factory) Close() error {
	var firstErr error
	if f.client != nil {
		if err := f.client.Close(); err != nil {
			firstErr = err
		}
		f.client = nil
	}
	if f.memory != nil {
		_ = f.memory.Close()
		f.memory = nil
	}
	return firstErr
}
