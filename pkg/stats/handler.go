// Package stats serves per-entity row totals from a short-lived memo that is
// dropped whenever a mutation invalidates the caches.
package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/fastlist/pkg/invalidation"
	"github.com/Sternrassler/fastlist/pkg/memo"
)

// CountFunc returns the total number of rows of one entity.
type CountFunc func(ctx context.Context) (int64, error)

// Totals is the body of GET /api/stats.
type Totals struct {
	Totals      map[string]int64 `json:"totals"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

type statsBody struct {
	Totals
	Cached       bool  `json:"cached"`
	ResponseTime int64 `json:"responseTime"`
}

// Handler serves the stats endpoint.
type Handler struct {
	counters map[string]CountFunc
	memo     *memo.Memo[Totals]
	logger   zerolog.Logger
}

// NewHandler creates a stats handler whose totals live for ttl.
func NewHandler(ttl time.Duration, counters map[string]CountFunc, logger zerolog.Logger) *Handler {
	return &Handler{
		counters: counters,
		memo:     memo.New[Totals](ttl),
		logger:   logger.With().Str("component", "stats").Logger(),
	}
}

// Invalidate drops the memoized totals. Its signature matches invalidation.Hook.
func (h *Handler) Invalidate(_ context.Context, m invalidation.Mutation) {
	h.memo.Invalidate()
	h.logger.Debug().Str("entity", m.Entity).Msg("Stats invalidated")
}

func (h *Handler) load(ctx context.Context) (Totals, error) {
	var mu sync.Mutex
	totals := make(map[string]int64, len(h.counters))

	g, gctx := errgroup.WithContext(ctx)
	for entity, count := range h.counters {
		g.Go(func() error {
			n, err := count(gctx)
			if err != nil {
				return err
			}
			mu.Lock()
			totals[entity] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Totals{}, err
	}
	return Totals{Totals: totals, GeneratedAt: time.Now().UTC()}, nil
}

// ServeHTTP answers GET /api/stats.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	totals, cached, err := h.memo.Get(r.Context(), h.load)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load stats")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to load stats"})
		return
	}
	_ = json.NewEncoder(w).Encode(statsBody{
		Totals:       totals,
		Cached:       cached,
		ResponseTime: time.Since(start).Milliseconds(),
	})
}
