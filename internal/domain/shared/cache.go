package shared

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value cache with per-entry expiry
type Cache interface {
	// Get returns the cached value and whether it was found
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value; a zero ttl means no expiry
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix and returns how many were removed
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Ping checks that the backing store is reachable
	Ping(ctx context.Context) error
	// Close releases resources
	Close() error
}
