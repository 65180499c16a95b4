package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fastlist/pkg/invalidation"
)

func fixed(n int64, calls *atomic.Int64) CountFunc {
	return func(context.Context) (int64, error) {
		calls.Add(1)
		return n, nil
	}
}

func get(t *testing.T, h http.Handler) statsBody {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body statsBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestStats_MemoizedUntilInvalidated(t *testing.T) {
	var calls atomic.Int64
	h := NewHandler(time.Hour, map[string]CountFunc{
		"product": fixed(12, &calls),
		"vendor":  fixed(3, &calls),
	}, zerolog.Nop())

	first := get(t, h)
	if first.Cached || first.Totals.Totals["product"] != 12 || first.Totals.Totals["vendor"] != 3 {
		t.Errorf("unexpected first body %+v", first)
	}

	second := get(t, h)
	if !second.Cached || calls.Load() != 2 {
		t.Errorf("second request should be memoized, cached=%v calls=%d", second.Cached, calls.Load())
	}

	h.Invalidate(context.Background(), invalidation.Mutation{Entity: "product"})
	third := get(t, h)
	if third.Cached || calls.Load() != 4 {
		t.Errorf("request after invalidation should reload, cached=%v calls=%d", third.Cached, calls.Load())
	}
}

func TestStats_CounterFailure(t *testing.T) {
	h := NewHandler(time.Hour, map[string]CountFunc{
		"wallet": func(context.Context) (int64, error) { return 0, errors.New("db down") },
	}, zerolog.Nop())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
