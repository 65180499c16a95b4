package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Each owner constructs its own instance.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

// Get returns the value for key. Expired entries are removed and reported as a miss.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}
	if entry.IsExpired() {
		delete(m.entries, key)
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	return entry.Value, nil
}

// GetWithTTL returns the value for key and the time left before it expires.
func (m *MemoryStore) GetWithTTL(_ context.Context, key string) ([]byte, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || entry.IsExpired() {
		delete(m.entries, key)
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, 0, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	return entry.Value, entry.TTL(), nil
}

// Set stores a copy of value until now+ttl. A non-positive TTL is a no-op.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	m.mu.Lock()
	m.entries[key] = Entry{Value: buf, ExpiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// DelPattern deletes keys matching a glob pattern using path.Match semantics.
// A malformed pattern deletes nothing and returns path.ErrBadPattern.
func (m *MemoryStore) DelPattern(_ context.Context, pattern string) (int64, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
			deleted++
		}
	}
	CacheDeletedKeys.Add(float64(deleted))
	return deleted, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for key, entry := range m.entries {
		if entry.IsExpired() {
			delete(m.entries, key)
			dropped++
		}
	}
	return dropped
}

// RunJanitor sweeps expired entries every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
