// Package cache provides the key/value cache store used by the list endpoints
// and the deterministic key builder for list queries.
//
// The store contract is deliberately small:
//
//   - Get returns ErrCacheMiss for a missing or expired key and ErrUnavailable
//     (wrapped) when the backing store cannot be reached in time.
//   - Set overwrites silently and is expected to be called off the response path.
//   - DelPattern removes every key matching a glob such as "product:*".
//
// Three implementations are provided:
//
//   - RedisStore: shared store backed by go-redis, every call bounded by a short
//     timeout so a stalled Redis degrades to a miss instead of blocking requests.
//   - MemoryStore: in-process store with explicit expiry, one instance per owner.
//   - Tiered: MemoryStore in front of a shared Store.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewRedisStore(redisClient, cache.RedisOptions{OpTimeout: 150 * time.Millisecond})
//
//	spec := cache.QueryFilterSpec{Company: "7", Take: 20}
//	dataKey, countKey := cache.Keys("product", spec, cache.FilterDefaults{SortField: "name"})
//
//	var page []Product
//	if err := cache.GetJSON(ctx, store, dataKey, &page); err != nil {
//		// ErrCacheMiss or ErrUnavailable: query the source of record
//	}
//
// # Fail-open
//
// Callers never treat a store error as a request failure. ErrUnavailable and
// ErrInvalidEntry are both handled as a miss.
//
// # Metrics
//
//   - fastlist_cache_hits_total{layer} - Cache hits (memory, redis)
//   - fastlist_cache_misses_total{layer} - Cache misses
//   - fastlist_cache_errors_total{operation} - Store failures (get, set, del)
//   - fastlist_cache_deleted_keys_total - Keys removed by DelPattern
package cache
