package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fastlist/pkg/async"
	"github.com/Sternrassler/fastlist/pkg/cache"
	"github.com/Sternrassler/fastlist/pkg/config"
	"github.com/Sternrassler/fastlist/pkg/entities"
	"github.com/Sternrassler/fastlist/pkg/invalidation"
	"github.com/Sternrassler/fastlist/pkg/listing"
	"github.com/Sternrassler/fastlist/pkg/logging"
	"github.com/Sternrassler/fastlist/pkg/metrics"
	"github.com/Sternrassler/fastlist/pkg/mutation"
	"github.com/Sternrassler/fastlist/pkg/pagination"
	"github.com/Sternrassler/fastlist/pkg/ratelimit"
	"github.com/Sternrassler/fastlist/pkg/stats"
)

// repository is what one entity needs from the source of record.
type repository[T entities.Record] interface {
	listing.Source[T]
	mutation.Repository[T]
}

type pinger interface {
	Ping(ctx context.Context) error
}

type appDeps struct {
	cfg      *config.Config
	store    cache.Store
	runner   *async.Runner
	inv      *invalidation.Service
	limiter  *ratelimit.Limiter
	database pinger
	cache    pinger
	logger   zerolog.Logger

	products repository[entities.ProductRow]
	vendors  repository[entities.VendorRow]
	clients  repository[entities.ClientRow]
	wallets  repository[entities.WalletRow]
}

type warmFunc func(ctx context.Context, pages int) (int, error)

type app struct {
	handler http.Handler
	warmers map[string]warmFunc
	warmer  *pagination.Warmer
	logger  zerolog.Logger
}

func newApp(d appDeps) (*app, error) {
	mux := http.NewServeMux()
	a := &app{
		warmers: map[string]warmFunc{},
		warmer:  pagination.NewWarmer(pagination.DefaultConfig()),
		logger:  d.logger,
	}
	counters := map[string]stats.CountFunc{}
	if err := errors.Join(
		mount(a, mux, entities.Product, d.products, d, counters),
		mount(a, mux, entities.Vendor, d.vendors, d, counters),
		mount(a, mux, entities.Client, d.clients, d, counters),
		mount(a, mux, entities.Wallet, d.wallets, d, counters),
	); err != nil {
		return nil, err
	}

	statsHandler := stats.NewHandler(d.cfg.StatsTTL, counters, d.logger)
	d.inv.OnInvalidate(statsHandler.Invalidate)
	if d.cfg.WarmPages > 0 {
		d.inv.OnInvalidate(func(ctx context.Context, m invalidation.Mutation) {
			for _, entity := range d.inv.Affected(m.Entity) {
				if warm, ok := a.warmers[entity]; ok {
					if _, err := warm(ctx, d.cfg.WarmPages); err != nil {
						d.logger.Warn().Err(err).Str("entity", entity).Msg("Re-warm after invalidation failed")
					}
				}
			}
		})
	}

	mux.Handle("GET /api/stats", statsHandler)
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(d.database, d.cache))
	mux.Handle("GET /metrics", metrics.Handler())

	var h http.Handler = mux
	h = metrics.Instrument(h)
	if d.limiter != nil {
		h = d.limiter.Middleware(h)
	}
	h = logging.Middleware(d.logger)(h)
	a.handler = h
	return a, nil
}

// mount registers the list and write routes of one entity.
func mount[T entities.Record](a *app, mux *http.ServeMux, entity string, repo repository[T], d appDeps, counters map[string]stats.CountFunc) error {
	cfg, err := entities.ListConfig(entity, entities.Compression{
		Threshold: d.cfg.CompressionThreshold,
		Level:     d.cfg.CompressionLevel,
	})
	if err != nil {
		return err
	}

	logger := d.logger.With().Str("entity", entity).Logger()
	svc := listing.NewService[T](cfg, d.store, repo, d.runner, logger)
	writes := mutation.NewHandler[T](entity, repo, d.inv, d.logger)

	base := "/api/" + entities.Plural(entity)
	mux.Handle("GET "+base, svc)
	mux.Handle("DELETE "+base, svc)
	mux.HandleFunc("POST "+base, writes.Create)
	mux.HandleFunc("PUT "+base+"/{id}", writes.Update)
	mux.HandleFunc("DELETE "+base+"/{id}", writes.Delete)

	a.warmers[entity] = func(ctx context.Context, pages int) (int, error) {
		return svc.Warm(ctx, a.warmer, pages)
	}
	counters[entity] = func(ctx context.Context) (int64, error) {
		return repo.Count(ctx, svc.Normalize(cache.QueryFilterSpec{}))
	}
	return nil
}

func (a *app) warmAll(ctx context.Context, pages int) error {
	var errs []error
	for _, entity := range entities.All() {
		n, err := a.warmers[entity](ctx, pages)
		a.logger.Info().Str("entity", entity).Int("pages", n).Msg("Warmed list cache")
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyHandler needs the database. The cache is reported but optional since
// lists are served from the database while it is down.
func readyHandler(database, cacheStore pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		body := map[string]string{"status": "ready", "database": "ok", "cache": "ok"}
		status := http.StatusOK
		if err := database.Ping(ctx); err != nil {
			body["database"] = err.Error()
			body["status"] = "not ready"
			status = http.StatusServiceUnavailable
		}
		if err := cacheStore.Ping(ctx); err != nil {
			body["cache"] = err.Error()
			if status == http.StatusOK {
				body["status"] = "degraded"
			}
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
