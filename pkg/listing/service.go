// Package listing implements the read-through list query: cache lookup,
// source-of-record fallback, asynchronous population and the HTTP contract of
// the list endpoints.
package listing

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fastlist/pkg/async"
	"github.com/Sternrassler/fastlist/pkg/cache"
	"github.com/Sternrassler/fastlist/pkg/httpcache"
	"github.com/Sternrassler/fastlist/pkg/pagination"
)

// Source is the system of record for one entity type.
type Source[T any] interface {
	// FindMany returns one page of rows matching spec.
	FindMany(ctx context.Context, spec cache.QueryFilterSpec) ([]T, error)

	// Count returns the number of rows matching spec, ignoring paging.
	Count(ctx context.Context, spec cache.QueryFilterSpec) (int64, error)
}

// Config describes one list endpoint.
type Config struct {
	// Entity names the cache namespace, e.g. "product".
	Entity string

	// Defaults are substituted for missing take and sort parameters.
	Defaults cache.FilterDefaults

	// SortFields are the accepted sortField values; others fall back to the default.
	SortFields []string

	// TTL is how long populated entries live in the store.
	TTL time.Duration

	// HitPolicy applies to responses served from cache.
	HitPolicy httpcache.Policy

	// MissPolicy applies to responses served from the source of record.
	MissPolicy httpcache.Policy
}

// Page is the cached and fingerprinted list payload.
type Page[T any] struct {
	Data       []T             `json:"data"`
	Pagination pagination.Meta `json:"pagination"`
}

// Result is a page plus where it came from.
type Result[T any] struct {
	Page[T]

	// Cached is true when both data and count came from the store.
	Cached bool

	// DBTime is the source query duration on a miss.
	DBTime time.Duration
}

// Service is the read-through list orchestrator for one entity.
type Service[T any] struct {
	cfg    Config
	store  cache.Store
	source Source[T]
	runner *async.Runner
	logger zerolog.Logger
}

// NewService creates a list service. The runner carries cache population off the request path.
func NewService[T any](cfg Config, store cache.Store, source Source[T], runner *async.Runner, logger zerolog.Logger) *Service[T] {
	if store == nil || source == nil || runner == nil {
		panic("listing: store, source and runner are required")
	}
	return &Service[T]{
		cfg:    cfg,
		store:  store,
		source: source,
		runner: runner,
		logger: logger.With().Str("entity", cfg.Entity).Logger(),
	}
}

// Entity returns the entity name of this service.
func (s *Service[T]) Entity() string {
	return s.cfg.Entity
}

// Normalize applies entity defaults and the sort field allow-list.
func (s *Service[T]) Normalize(spec cache.QueryFilterSpec) cache.QueryFilterSpec {
	n := spec.Normalize(s.cfg.Defaults)
	if len(s.cfg.SortFields) > 0 && !slices.Contains(s.cfg.SortFields, n.SortField) {
		n.SortField = s.cfg.Defaults.SortField
	}
	return n
}

// List serves one page, from the store when both data and count are cached,
// otherwise from the source of record. Store failures never fail the call.
func (s *Service[T]) List(ctx context.Context, spec cache.QueryFilterSpec) (Result[T], error) {
	spec = s.Normalize(spec)
	dataKey, countKey := cache.Keys(s.cfg.Entity, spec, s.cfg.Defaults)

	if page, ok := s.lookup(ctx, dataKey, countKey, spec); ok {
		return Result[T]{Page: page, Cached: true}, nil
	}

	start := time.Now()
	rows, total, err := s.query(ctx, spec)
	dbTime := time.Since(start)
	if err != nil {
		return Result[T]{}, &QueryError{Kind: KindSourceQuery, Entity: s.cfg.Entity, Err: err}
	}

	s.populate(ctx, dataKey, countKey, rows, total)

	return Result[T]{
		Page: Page[T]{
			Data:       rows,
			Pagination: pagination.NewMeta(total, spec.Skip, spec.Take),
		},
		DBTime: dbTime,
	}, nil
}

// lookup fetches data and count concurrently. Only a full hit counts; a partial
// hit is a miss so pagination never mixes cached and fresh values.
func (s *Service[T]) lookup(ctx context.Context, dataKey, countKey string, spec cache.QueryFilterSpec) (Page[T], bool) {
	var (
		rows            []T
		total           int64
		dataErr, cntErr error
		wg              sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		dataErr = cache.GetJSON(ctx, s.store, dataKey, &rows)
	}()
	go func() {
		defer wg.Done()
		cntErr = cache.GetJSON(ctx, s.store, countKey, &total)
	}()
	wg.Wait()

	switch {
	case dataErr == nil && cntErr == nil:
		cacheLookups.WithLabelValues(s.cfg.Entity, "hit").Inc()
		s.logger.Debug().Str("key", dataKey).Msg("List cache hit")
		if rows == nil {
			rows = []T{}
		}
		return Page[T]{Data: rows, Pagination: pagination.NewMeta(total, spec.Skip, spec.Take)}, true

	case isUnavailable(dataErr) || isUnavailable(cntErr):
		cacheLookups.WithLabelValues(s.cfg.Entity, "unavailable").Inc()
		s.logger.Warn().
			Err(errors.Join(dataErr, cntErr)).
			Str("error_kind", string(KindCacheUnavailable)).
			Msg("Cache lookup failed, querying source")

	case dataErr == nil || cntErr == nil:
		cacheLookups.WithLabelValues(s.cfg.Entity, "partial").Inc()
		s.logger.Debug().Str("key", dataKey).Msg("Partial cache hit treated as miss")

	default:
		cacheLookups.WithLabelValues(s.cfg.Entity, "miss").Inc()
		s.logger.Debug().Str("key", dataKey).Msg("List cache miss")
	}
	return Page[T]{}, false
}

// query runs the page and count queries concurrently against the source.
func (s *Service[T]) query(ctx context.Context, spec cache.QueryFilterSpec) ([]T, int64, error) {
	var (
		rows            []T
		total           int64
		rowsErr, cntErr error
		wg              sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		rows, rowsErr = s.source.FindMany(ctx, spec)
	}()
	go func() {
		defer wg.Done()
		total, cntErr = s.source.Count(ctx, spec)
	}()
	wg.Wait()

	if err := errors.Join(rowsErr, cntErr); err != nil {
		return nil, 0, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, total, nil
}

// populate writes both keys in a detached task. Failures are logged only.
func (s *Service[T]) populate(ctx context.Context, dataKey, countKey string, rows []T, total int64) {
	ttl := s.cfg.TTL
	s.runner.Go(ctx, "populate:"+s.cfg.Entity, func(ctx context.Context) error {
		err := errors.Join(
			cache.SetJSON(ctx, s.store, dataKey, rows, ttl),
			cache.SetJSON(ctx, s.store, countKey, total, ttl),
		)
		if err != nil {
			return &QueryError{Kind: KindCacheWrite, Entity: s.cfg.Entity, Err: err}
		}
		return nil
	})
}

// Warm loads the first pages of the default listing through the read path.
func (s *Service[T]) Warm(ctx context.Context, warmer *pagination.Warmer, pages int) (int, error) {
	take := s.Normalize(cache.QueryFilterSpec{}).Take
	return warmer.Warm(ctx, s.cfg.Entity, pages, func(ctx context.Context, page int) error {
		_, err := s.List(ctx, cache.QueryFilterSpec{Skip: page * take})
		return err
	})
}

func isUnavailable(err error) bool {
	return err != nil && !errors.Is(err, cache.ErrCacheMiss)
}
