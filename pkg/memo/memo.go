// Package memo holds a single computed value for a bounded time.
package memo

import (
	"context"
	"sync"
	"time"
)

// Memo caches the result of a loader for ttl. Loader errors are not cached.
type Memo[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	value     T
	expiresAt time.Time
	loaded    bool
}

// New creates a Memo whose values live for ttl.
func New[T any](ttl time.Duration) *Memo[T] {
	return &Memo[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value, calling load when it is missing or expired.
// The second result reports whether the value came from the memo.
func (m *Memo[T]) Get(ctx context.Context, load func(ctx context.Context) (T, error)) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded && m.now().Before(m.expiresAt) {
		return m.value, true, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	m.value = v
	m.expiresAt = m.now().Add(m.ttl)
	m.loaded = true
	return v, false, nil
}

// Invalidate drops the cached value.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	m.value = zero
	m.loaded = false
}
