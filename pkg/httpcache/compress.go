package httpcache

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Supported content encodings, in order of preference.
const (
	EncodingZstd     = "zstd"
	EncodingGzip     = "gzip"
	EncodingDeflate  = "deflate"
	EncodingIdentity = "identity"
)

var preference = []string{EncodingZstd, EncodingGzip, EncodingDeflate}

// NegotiateEncoding picks the preferred encoding acceptable to the client.
// It returns EncodingIdentity when nothing supported is accepted.
func NegotiateEncoding(acceptEncoding string) string {
	if acceptEncoding == "" {
		return EncodingIdentity
	}

	weights := make(map[string]float64)
	wildcard := -1.0
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, q := parseCoding(part)
		if name == "" {
			continue
		}
		if name == "*" {
			wildcard = q
			continue
		}
		weights[name] = q
	}

	best, bestQ := EncodingIdentity, 0.0
	for _, enc := range preference {
		q, ok := weights[enc]
		if !ok {
			q = wildcard
		}
		// strictly greater keeps the earlier, preferred encoding on ties
		if q > bestQ {
			best, bestQ = enc, q
		}
	}
	return best
}

// parseCoding splits "gzip;q=0.8" into its name and weight.
// A malformed weight disables the coding.
func parseCoding(part string) (string, float64) {
	fields := strings.Split(part, ";")
	name := strings.ToLower(strings.TrimSpace(fields[0]))
	q := 1.0
	for _, param := range fields[1:] {
		param = strings.TrimSpace(param)
		if !strings.HasPrefix(param, "q=") {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimPrefix(param, "q="), 64)
		if err != nil || v < 0 || v > 1 {
			return name, 0
		}
		q = v
	}
	return name, q
}

// Compress encodes body with the named encoding at a gzip-scale level.
func Compress(encoding string, body []byte, level int) ([]byte, error) {
	switch encoding {
	case EncodingZstd:
		return zstdEncoder(level).EncodeAll(body, make([]byte, 0, len(body)/2)), nil
	case EncodingGzip:
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		if _, err := zw.Write(body); err != nil {
			return nil, fmt.Errorf("gzip write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("gzip close: %w", err)
		}
		return buf.Bytes(), nil
	case EncodingDeflate:
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("deflate writer: %w", err)
		}
		if _, err := fw.Write(body); err != nil {
			return nil, fmt.Errorf("deflate write: %w", err)
		}
		if err := fw.Close(); err != nil {
			return nil, fmt.Errorf("deflate close: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

var (
	zstdMu       sync.Mutex
	zstdEncoders = make(map[zstd.EncoderLevel]*zstd.Encoder)
)

// zstdEncoder returns a shared encoder; EncodeAll is safe for concurrent use.
func zstdEncoder(level int) *zstd.Encoder {
	l := zstd.EncoderLevelFromZstd(level)

	zstdMu.Lock()
	defer zstdMu.Unlock()

	if enc, ok := zstdEncoders[l]; ok {
		return enc
	}
	// NewWriter(nil, ...) only fails on invalid options
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(l))
	zstdEncoders[l] = enc
	return enc
}

// WriteResponse writes a JSON body with validators and freshness headers,
// compressing it when it reaches the policy threshold and the client accepts
// a supported encoding. A compression failure falls back to identity.
func WriteResponse(w http.ResponseWriter, r *http.Request, status int, body []byte, policy Policy, etag string) {
	policy = policy.withDefaults()

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", policy.CacheControl())
	h.Add("Vary", "Accept-Encoding")
	if etag != "" {
		h.Set("ETag", etag)
	}

	encoding := EncodingIdentity
	if len(body) >= policy.CompressionThreshold {
		encoding = NegotiateEncoding(r.Header.Get("Accept-Encoding"))
	}

	if encoding != EncodingIdentity {
		compressed, err := Compress(encoding, body, policy.CompressionLevel)
		if err == nil {
			if saved := len(body) - len(compressed); saved > 0 {
				compressionSavedBytes.Add(float64(saved))
			}
			body = compressed
			h.Set("Content-Encoding", encoding)
		} else {
			encoding = EncodingIdentity
		}
	}
	compressedResponses.WithLabelValues(encoding).Inc()

	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

// WriteNotModified answers a matching conditional request with 304 and no body.
func WriteNotModified(w http.ResponseWriter, policy Policy, etag string) {
	h := w.Header()
	h.Set("Cache-Control", policy.CacheControl())
	h.Add("Vary", "Accept-Encoding")
	h.Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}
