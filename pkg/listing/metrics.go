package listing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	listDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fastlist_list_duration_seconds",
		Help:    "List request duration by entity and data source",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	}, []string{"entity", "source"}) // source: "cache", "database", "error"

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastlist_list_cache_lookups_total",
		Help: "List cache lookups by entity and result",
	}, []string{"entity", "result"}) // result: "hit", "miss", "partial", "unavailable"

	notModified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastlist_not_modified_total",
		Help: "Conditional list requests answered with 304",
	}, []string{"entity"})
)
