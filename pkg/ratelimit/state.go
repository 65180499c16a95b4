// Package ratelimit implements a fixed-window request limiter per client IP.
// Counters live in Redis so every instance shares the same windows.
package ratelimit

import (
	"strconv"
	"time"
)

// KeyPrefix namespaces the window counters in Redis.
const KeyPrefix = "ratelimit:"

// DefaultWindow is the length of one counting window.
const DefaultWindow = time.Minute

// Decision is the outcome of one limiter check.
type Decision struct {
	// Allowed is false once Count exceeds Limit within the window.
	Allowed bool

	Count   int64
	Limit   int64
	ResetAt time.Time
}

// Remaining returns how many requests are left in the window.
func (d Decision) Remaining() int64 {
	if d.Count >= d.Limit {
		return 0
	}
	return d.Limit - d.Count
}

// RetryAfter returns the whole seconds until the window resets, at least 1.
func (d Decision) RetryAfter(now time.Time) int64 {
	secs := int64(d.ResetAt.Sub(now).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// windowKey returns the counter key of client for the window containing now.
func windowKey(client string, now time.Time, window time.Duration) (string, time.Time) {
	start := now.Truncate(window)
	return KeyPrefix + client + ":" + strconv.FormatInt(start.Unix(), 10), start.Add(window)
}
