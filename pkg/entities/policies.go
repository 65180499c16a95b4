package entities

import (
	"time"

	"github.com/Sternrassler/fastlist/pkg/cache"
	"github.com/Sternrassler/fastlist/pkg/httpcache"
	"github.com/Sternrassler/fastlist/pkg/listing"
)

// volatility groups entities by how often their lists change.
type volatility struct {
	ttl       time.Duration
	hitAge    time.Duration // browser max-age on a cache hit
	hitCDN    time.Duration
	missAge   time.Duration // fresh data gets shorter windows
	missCDN   time.Duration
	staleLeft time.Duration
}

var (
	// wallet balances move with every transaction
	high = volatility{ttl: time.Minute, hitAge: 10 * time.Second, hitCDN: 30 * time.Second,
		missAge: 5 * time.Second, missCDN: 15 * time.Second, staleLeft: 30 * time.Second}
	medium = volatility{ttl: 5 * time.Minute, hitAge: 60 * time.Second, hitCDN: 5 * time.Minute,
		missAge: 30 * time.Second, missCDN: 2 * time.Minute, staleLeft: 5 * time.Minute}
	low = volatility{ttl: 10 * time.Minute, hitAge: 2 * time.Minute, hitCDN: 10 * time.Minute,
		missAge: time.Minute, missCDN: 5 * time.Minute, staleLeft: 10 * time.Minute}
)

func (v volatility) policies(threshold, level int) (hit, miss httpcache.Policy) {
	hit = httpcache.Policy{
		CompressionThreshold: threshold,
		CompressionLevel:     level,
		BrowserMaxAge:        v.hitAge,
		CDNMaxAge:            v.hitCDN,
		StaleWhileRevalidate: v.staleLeft,
	}
	miss = hit
	miss.BrowserMaxAge = v.missAge
	miss.CDNMaxAge = v.missCDN
	return hit, miss
}

// Compression settings shared by every list endpoint.
type Compression struct {
	Threshold int
	Level     int
}

// ListConfig returns the list endpoint configuration for entity.
func ListConfig(entity string, c Compression) (listing.Config, error) {
	var (
		v        volatility
		defaults cache.FilterDefaults
		sorts    []string
	)

	switch entity {
	case Product:
		v = medium
		defaults = cache.FilterDefaults{Take: 20, SortField: "name", SortDirection: cache.SortAsc}
		sorts = []string{"name", "sku", "price", "createdAt", "updatedAt"}
	case Vendor:
		v = low
		defaults = cache.FilterDefaults{Take: 20, SortField: "name", SortDirection: cache.SortAsc}
		sorts = []string{"name", "createdAt", "updatedAt"}
	case Client:
		v = medium
		defaults = cache.FilterDefaults{Take: 20, SortField: "name", SortDirection: cache.SortAsc}
		sorts = []string{"name", "createdAt", "updatedAt"}
	case Wallet:
		v = high
		defaults = cache.FilterDefaults{Take: 20, SortField: "updatedAt", SortDirection: cache.SortDesc}
		sorts = []string{"updatedAt", "createdAt", "balance", "provider"}
	default:
		return listing.Config{}, listing.ErrUnknownEntity
	}

	hit, miss := v.policies(c.Threshold, c.Level)
	return listing.Config{
		Entity:     entity,
		Defaults:   defaults,
		SortFields: sorts,
		TTL:        v.ttl,
		HitPolicy:  hit,
		MissPolicy: miss,
	}, nil
}

// All lists the entities served by the fast list endpoints.
func All() []string {
	return []string{Product, Vendor, Client, Wallet}
}

// Plural is the route segment of an entity.
func Plural(entity string) string {
	return entity + "s"
}
