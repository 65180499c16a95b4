package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// requestID reuses the caller's X-Request-ID or generates one, and adds it to
// the request logger installed by hlog.NewHandler.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("request_id", id)
		})
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	if status == 0 {
		status = http.StatusOK
	}
	logger := hlog.FromRequest(r)
	event := logger.Info()
	if status >= http.StatusInternalServerError {
		event = logger.Warn()
	}
	event.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("query", r.URL.RawQuery).
		Int("status", status).
		Int("bytes", size).
		Dur("duration", duration).
		Msg("Request handled")
}

// Middleware stores a request-scoped logger in the context (see zerolog.Ctx),
// tags it with a request id and writes one access log line per request.
func Middleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(accessLog)(next)
		h = requestID(h)
		return hlog.NewHandler(logger)(h)
	}
}
