// Package metrics exposes the Prometheus registry and the HTTP instrumentation
// of the service. Domain metrics are defined next to the code that updates them
// (cache, listing, httpcache, invalidation, ratelimit, mutation, async) and are
// registered through promauto.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the service.
var Registry = prometheus.DefaultRegisterer

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fastlist_http_requests_total",
			Help: "HTTP requests by route pattern, method and status",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fastlist_http_request_duration_seconds",
			Help:    "HTTP request duration by route pattern",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"route"},
	)
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Instrument records request counts and latency. It must wrap a ServeMux so
// the matched pattern is known once the request has been served.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Metrics Documentation
//
// HTTP Metrics (pkg/metrics):
//   - fastlist_http_requests_total{route, method, status} (Counter)
//   - fastlist_http_request_duration_seconds{route} (Histogram)
//
// Cache Metrics (pkg/cache):
//   - fastlist_cache_hits_total{layer} (Counter): hits by layer (memory, redis)
//   - fastlist_cache_misses_total{layer} (Counter)
//   - fastlist_cache_errors_total{operation} (Counter): store errors (get, set, del)
//   - fastlist_cache_deleted_keys_total (Counter): keys removed by pattern deletes
//
// List Metrics (pkg/listing):
//   - fastlist_list_duration_seconds{entity, source} (Histogram): source is cache or database
//   - fastlist_list_cache_lookups_total{entity, result} (Counter): hit, miss, partial, unavailable
//   - fastlist_not_modified_total{entity} (Counter): 304 responses
//
// Response Metrics (pkg/httpcache):
//   - fastlist_compressed_responses_total{encoding} (Counter)
//   - fastlist_compression_saved_bytes_total (Counter)
//
// Write Path Metrics:
//   - fastlist_mutations_total{entity, operation, result} (Counter, pkg/mutation)
//   - fastlist_invalidations_total{entity, result} (Counter, pkg/invalidation)
//   - fastlist_detached_tasks_total{task, result} (Counter, pkg/async)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - fastlist_rate_limited_total (Counter): requests answered with 429
//   - fastlist_rate_limit_errors_total (Counter): checks that failed open
//
// Example Prometheus Queries:
//
//   # List cache hit rate
//   sum(rate(fastlist_list_cache_lookups_total{result="hit"}[5m])) /
//   sum(rate(fastlist_list_cache_lookups_total[5m]))
//
//   # P95 list latency served from the database
//   histogram_quantile(0.95, rate(fastlist_list_duration_seconds_bucket{source="database"}[5m]))
//
//   # Invalidations that left lists stale until TTL
//   rate(fastlist_invalidations_total{result="error"}[5m])
