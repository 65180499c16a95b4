package listing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/fastlist/pkg/cache"
	"github.com/Sternrassler/fastlist/pkg/httpcache"
	"github.com/Sternrassler/fastlist/pkg/pagination"
)

// listBody is the 200 response of a list endpoint.
type listBody[T any] struct {
	Data         []T             `json:"data"`
	Pagination   pagination.Meta `json:"pagination"`
	Cached       bool            `json:"cached"`
	CacheHit     bool            `json:"cacheHit"`
	ResponseTime int64           `json:"responseTime"`
	DBTime       *int64          `json:"dbTime,omitempty"`
}

type errorBody struct {
	Error        string `json:"error"`
	Kind         string `json:"kind,omitempty"`
	ResponseTime int64  `json:"responseTime"`
}

type flushBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Pattern string `json:"pattern"`
	Deleted int64  `json:"deleted"`
}

// ServeHTTP serves GET (list) and DELETE (cache flush) on the list endpoint.
func (s *Service[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.ServeList(w, r)
	case http.MethodDelete:
		s.ServeFlush(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, DELETE")
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	}
}

// ServeList answers a list request with 200, 304 or 500.
func (s *Service[T]) ServeList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	spec := ParseFilter(r.URL.Query())

	res, err := s.List(r.Context(), spec)
	if err != nil {
		s.fail(w, start, err)
		return
	}

	source := "database"
	policy := s.cfg.MissPolicy
	if res.Cached {
		source = "cache"
		policy = s.cfg.HitPolicy
	}

	payload, err := json.Marshal(res.Page)
	if err != nil {
		s.fail(w, start, &QueryError{Kind: KindSerialization, Entity: s.cfg.Entity, Err: err})
		return
	}
	etag := httpcache.GenerateETag(payload)

	if inm := r.Header.Get("If-None-Match"); inm != "" && !httpcache.WellFormedIfNoneMatch(inm) {
		s.logger.Debug().
			Str("error_kind", string(KindMalformedConditional)).
			Str("if_none_match", inm).
			Msg("Ignoring malformed conditional header")
	}
	if httpcache.CheckETag(r, etag) {
		notModified.WithLabelValues(s.cfg.Entity).Inc()
		listDuration.WithLabelValues(s.cfg.Entity, source).Observe(time.Since(start).Seconds())
		httpcache.WriteNotModified(w, policy, etag)
		return
	}

	body := listBody[T]{
		Data:         res.Data,
		Pagination:   res.Pagination,
		Cached:       res.Cached,
		CacheHit:     res.Cached,
		ResponseTime: time.Since(start).Milliseconds(),
	}
	if !res.Cached {
		ms := res.DBTime.Milliseconds()
		body.DBTime = &ms
	}

	out, err := json.Marshal(body)
	if err != nil {
		s.fail(w, start, &QueryError{Kind: KindSerialization, Entity: s.cfg.Entity, Err: err})
		return
	}

	listDuration.WithLabelValues(s.cfg.Entity, source).Observe(time.Since(start).Seconds())
	httpcache.WriteResponse(w, r, http.StatusOK, out, policy, etag)
}

// ServeFlush deletes cached entries of this entity matching ?pattern=.
// Patterns are confined to the entity namespace; an empty pattern flushes it all.
func (s *Service[T]) ServeFlush(w http.ResponseWriter, r *http.Request) {
	pattern := s.scopePattern(r.URL.Query().Get("pattern"))

	deleted, err := s.store.DelPattern(r.Context(), pattern)
	if err != nil {
		s.logger.Error().Err(err).Str("pattern", pattern).Msg("Cache flush failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to clear cache"})
		return
	}

	s.logger.Info().Str("pattern", pattern).Int64("deleted", deleted).Msg("Cache flushed")
	writeJSON(w, http.StatusOK, flushBody{
		Success: true,
		Message: fmt.Sprintf("Cleared %d cache entries", deleted),
		Pattern: pattern,
		Deleted: deleted,
	})
}

func (s *Service[T]) scopePattern(pattern string) string {
	namespace := s.cfg.Entity + ":"
	switch {
	case pattern == "" || pattern == "*":
		return cache.Prefix(s.cfg.Entity)
	case strings.HasPrefix(pattern, namespace):
		return pattern
	default:
		return namespace + pattern
	}
}

func (s *Service[T]) fail(w http.ResponseWriter, start time.Time, err error) {
	elapsed := time.Since(start)
	listDuration.WithLabelValues(s.cfg.Entity, "error").Observe(elapsed.Seconds())

	s.logger.Error().
		Err(err).
		Str("error_kind", string(KindOf(err))).
		Dur("duration", elapsed).
		Msg("List request failed")

	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error:        fmt.Sprintf("Failed to fetch %s list", s.cfg.Entity),
		Kind:         string(KindOf(err)),
		ResponseTime: elapsed.Milliseconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
