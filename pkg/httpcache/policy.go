package httpcache

import (
	"fmt"
	"time"
)

const (
	// DefaultCompressionThreshold is the smallest body worth compressing.
	DefaultCompressionThreshold = 1024

	// DefaultCompressionLevel is a gzip-scale level (1 fastest, 9 best).
	DefaultCompressionLevel = 6
)

// Policy controls compression and freshness of a response.
type Policy struct {
	// CompressionThreshold is the body size in bytes at which compression starts.
	CompressionThreshold int

	// CompressionLevel is on the gzip scale, 1 to 9.
	CompressionLevel int

	// BrowserMaxAge is sent as max-age.
	BrowserMaxAge time.Duration

	// CDNMaxAge is sent as s-maxage.
	CDNMaxAge time.Duration

	// StaleWhileRevalidate is sent as stale-while-revalidate.
	StaleWhileRevalidate time.Duration
}

// CacheControl renders the Cache-Control header value.
func (p Policy) CacheControl() string {
	return fmt.Sprintf("public, max-age=%d, s-maxage=%d, stale-while-revalidate=%d",
		seconds(p.BrowserMaxAge), seconds(p.CDNMaxAge), seconds(p.StaleWhileRevalidate))
}

func (p Policy) withDefaults() Policy {
	if p.CompressionThreshold <= 0 {
		p.CompressionThreshold = DefaultCompressionThreshold
	}
	if p.CompressionLevel < 1 || p.CompressionLevel > 9 {
		p.CompressionLevel = DefaultCompressionLevel
	}
	return p
}

func seconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
