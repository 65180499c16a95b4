package cache

import (
	"time"
)

// Entry is a cached value together with its absolute expiry.
type Entry struct {
	// Value is the serialized payload.
	Value []byte

	// ExpiresAt is when the entry stops being served.
	ExpiresAt time.Time
}

// IsExpired returns true if the entry must be treated as a miss.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
