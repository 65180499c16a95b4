package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/fastlist/pkg/cache"
)

// FailingStore simulates a cache store that is down.
type FailingStore struct{}

// Get always fails.
func (FailingStore) Get(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("%w: simulated outage", cache.ErrUnavailable)
}

// Set always fails.
func (FailingStore) Set(context.Context, string, []byte, time.Duration) error {
	return fmt.Errorf("%w: simulated outage", cache.ErrUnavailable)
}

// DelPattern always fails.
func (FailingStore) DelPattern(context.Context, string) (int64, error) {
	return 0, fmt.Errorf("%w: simulated outage", cache.ErrUnavailable)
}

// Ping always fails.
func (FailingStore) Ping(context.Context) error {
	return fmt.Errorf("%w: simulated outage", cache.ErrUnavailable)
}
