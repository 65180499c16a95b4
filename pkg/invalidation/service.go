// Package invalidation removes cached list entries after a mutation.
//
// Invalidation is best-effort and not transactional with the write. When a
// delete fails, the stale entries stay until their TTL runs out. Because
// filter-derived keys cannot be enumerated, a mutation clears the whole "<entity>:*" namespace plus the
// namespaces of entities whose rows embed the mutated entity.
package invalidation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/fastlist/pkg/async"
	"github.com/Sternrassler/fastlist/pkg/cache"
)

var invalidations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fastlist_invalidations_total",
	Help: "Pattern invalidations by entity and result",
}, []string{"entity", "result"}) // result: "ok", "error"

// Dependencies maps an entity to the entities whose cached rows embed it.
// For example {"vendor": {"product"}} clears product lists on vendor changes.
type Dependencies map[string][]string

// DefaultDependencies lists the known cross-entity embeddings.
func DefaultDependencies() Dependencies {
	return Dependencies{
		"vendor": {"product"},
		"client": {"wallet"},
	}
}

// Mutation describes a successful write to the source of record.
type Mutation struct {
	Entity      string
	ID          string
	AggregateID string
}

// Hook runs after the patterns of a mutation have been deleted, whether or not
// the deletes succeeded.
type Hook func(ctx context.Context, m Mutation)

// PatternResult is the outcome of one pattern delete.
type PatternResult struct {
	Pattern string
	Deleted int64
	Err     error
}

// Service deletes cache namespaces affected by mutations.
type Service struct {
	store  cache.Store
	deps   Dependencies
	runner *async.Runner
	logger zerolog.Logger
	hooks  []Hook
}

// NewService creates an invalidation service. A nil deps uses DefaultDependencies.
func NewService(store cache.Store, deps Dependencies, runner *async.Runner, logger zerolog.Logger) *Service {
	if store == nil || runner == nil {
		panic("invalidation: store and runner are required")
	}
	if deps == nil {
		deps = DefaultDependencies()
	}
	return &Service{
		store:  store,
		deps:   deps,
		runner: runner,
		logger: logger,
	}
}

// OnInvalidate registers a hook. Not safe to call concurrently with Dispatch.
func (s *Service) OnInvalidate(h Hook) {
	s.hooks = append(s.hooks, h)
}

// Affected returns entity followed by its dependents in order, without duplicates.
func (s *Service) Affected(entity string) []string {
	out := []string{entity}
	for _, dep := range s.deps[entity] {
		if !slices.Contains(out, dep) {
			out = append(out, dep)
		}
	}
	return out
}

// Patterns returns the namespaces cleared by a mutation of entity.
func (s *Service) Patterns(entity string) []string {
	affected := s.Affected(entity)
	patterns := make([]string, len(affected))
	for i, e := range affected {
		patterns[i] = cache.Prefix(e)
	}
	return patterns
}

// InvalidateOnMutation deletes every affected namespace and waits for the
// result. Every pattern is attempted even if an earlier one fails.
func (s *Service) InvalidateOnMutation(ctx context.Context, m Mutation) ([]PatternResult, error) {
	patterns := s.Patterns(m.Entity)
	results := make([]PatternResult, 0, len(patterns))

	var errs []error
	for _, pattern := range patterns {
		n, err := s.store.DelPattern(ctx, pattern)
		results = append(results, PatternResult{Pattern: pattern, Deleted: n, Err: err})

		if err != nil {
			invalidations.WithLabelValues(m.Entity, "error").Inc()
			errs = append(errs, fmt.Errorf("delete %q: %w", pattern, err))
			continue
		}
		invalidations.WithLabelValues(m.Entity, "ok").Inc()
		s.logger.Debug().
			Str("entity", m.Entity).
			Str("id", m.ID).
			Str("aggregate_id", m.AggregateID).
			Str("pattern", pattern).
			Int64("deleted", n).
			Msg("Cache invalidated")
	}

	for _, h := range s.hooks {
		h(ctx, m)
	}

	return results, errors.Join(errs...)
}

// Dispatch invalidates in a detached task and returns immediately. The
// mutation response never waits for it; failures are logged only.
func (s *Service) Dispatch(ctx context.Context, m Mutation) {
	s.runner.Go(ctx, "invalidate:"+m.Entity, func(ctx context.Context) error {
		_, err := s.InvalidateOnMutation(ctx, m)
		if err != nil {
			return fmt.Errorf("invalidation (stale until TTL) %s/%s: %w", m.Entity, m.ID, err)
		}
		return nil
	})
}
