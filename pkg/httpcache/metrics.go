package httpcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compressedResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastlist_compressed_responses_total",
		Help: "Responses written by content encoding",
	}, []string{"encoding"}) // "zstd", "gzip", "deflate", "identity"

	compressionSavedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fastlist_compression_saved_bytes_total",
		Help: "Bytes saved by response compression",
	})
)
