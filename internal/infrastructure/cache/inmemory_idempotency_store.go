package cache

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore implements IdempotencyStore on a MemoryCache.
// WARNING: state is per process. With several instances a retried IPN
// that reaches another instance is processed again.
type InMemoryIdempotencyStore struct {
	cache    *MemoryCache
	ownCache bool
}

// NewInMemoryIdempotencyStore creates a store with its own memory cache
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		cache:    NewMemoryCache(5 * time.Minute),
		ownCache: true,
	}
}

// NewInMemoryIdempotencyStoreOn shares an existing memory cache
func NewInMemoryIdempotencyStoreOn(c *MemoryCache) *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{cache: c}
}

// MarkProcessed returns true if key was newly marked
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.cache.SetNX(ctx, DefaultIdempotencyPrefix+key, []byte{1}, ttl)
}

// IsProcessed checks if key is marked and not expired
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	return s.cache.Exists(ctx, DefaultIdempotencyPrefix+key)
}

// Forget removes a key so the notification can be processed again
func (s *InMemoryIdempotencyStore) Forget(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, DefaultIdempotencyPrefix+key)
}

// Close closes the cache when the store created it
func (s *InMemoryIdempotencyStore) Close() error {
	if s.ownCache {
		return s.cache.Close()
	}
	return nil
}

// Size returns the number of stored keys (for testing/monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	return s.cache.Len()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
