package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnavailable indicates the store could not be reached or timed out
	ErrUnavailable = errors.New("cache unavailable")

	// ErrInvalidEntry indicates the cached payload could not be decoded
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a key/value store with per-key expiry.
type Store interface {
	// Get returns the value for key, ErrCacheMiss when absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DelPattern deletes every key matching the glob pattern and returns
	// the number of keys removed.
	DelPattern(ctx context.Context, pattern string) (int64, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// ExpiryReader is implemented by stores that can report how long a value
// has left to live. A negative TTL means the value never expires.
type ExpiryReader interface {
	GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error)
}

// GetJSON reads key from store and decodes it into dst.
func GetJSON(ctx context.Context, store Store, key string, dst any) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key for ttl.
func SetJSON(ctx context.Context, store Store, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return store.Set(ctx, key, data, ttl)
}
