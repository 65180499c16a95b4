package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastlist_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"layer"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastlist_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks store failures
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastlist_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "del", "ping"
	)

	// CacheDeletedKeys tracks keys removed by pattern deletes
	CacheDeletedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fastlist_cache_deleted_keys_total",
			Help: "Total number of keys removed by pattern deletes",
		},
	)
)
