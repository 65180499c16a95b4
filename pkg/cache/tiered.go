package cache

import (
	"context"
	"errors"
	"time"
)

// Tiered puts a process-local MemoryStore in front of a shared Store.
//
// Local entries live at most localTTL. Pattern deletes reach both tiers of this
// process only; other processes keep their local copies until localTTL elapses.
type Tiered struct {
	local    *MemoryStore
	shared   Store
	localTTL time.Duration
}

// NewTiered creates a two-tier store. localTTL caps how long a value stays in process.
func NewTiered(local *MemoryStore, shared Store, localTTL time.Duration) *Tiered {
	if local == nil || shared == nil {
		panic("tiered store requires both tiers")
	}
	return &Tiered{
		local:    local,
		shared:   shared,
		localTTL: localTTL,
	}
}

// Get checks the local tier first and backfills it from the shared tier.
// A backfilled entry never outlives its shared counterpart.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	if data, err := t.local.Get(ctx, key); err == nil {
		return data, nil
	}

	reader, ok := t.shared.(ExpiryReader)
	if !ok {
		// remaining lifetime unknown, so the local tier is not backfilled
		return t.shared.Get(ctx, key)
	}

	data, remaining, err := reader.GetWithTTL(ctx, key)
	if err != nil {
		return nil, err
	}

	_ = t.local.Set(ctx, key, data, backfillTTL(remaining, t.localTTL))
	return data, nil
}

// backfillTTL caps the local lifetime by what the shared entry has left.
func backfillTTL(remaining, localTTL time.Duration) time.Duration {
	if remaining < 0 {
		return localTTL
	}
	return min(remaining, localTTL)
}

// Set writes both tiers. The local write always succeeds; the shared error is returned.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = t.local.Set(ctx, key, value, min(ttl, t.localTTL))
	return t.shared.Set(ctx, key, value, ttl)
}

// DelPattern deletes from both tiers and reports the shared-tier count.
// If the shared tier fails, the local count is returned alongside the error.
func (t *Tiered) DelPattern(ctx context.Context, pattern string) (int64, error) {
	localDeleted, localErr := t.local.DelPattern(ctx, pattern)

	sharedDeleted, err := t.shared.DelPattern(ctx, pattern)
	if err != nil {
		return localDeleted, errors.Join(err, localErr)
	}
	return sharedDeleted, localErr
}

// Ping reports shared-tier health.
func (t *Tiered) Ping(ctx context.Context) error {
	return t.shared.Ping(ctx)
}
