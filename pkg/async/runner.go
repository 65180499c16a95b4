// Package async runs detached side effects: work that must not delay a
// response and whose failure is logged, never returned to the caller.
package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var detachedTasks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fastlist_detached_tasks_total",
	Help: "Detached background tasks by task and result",
}, []string{"task", "result"}) // result: "ok", "error", "panic"

// DefaultTimeout bounds a detached task when the runner has none configured.
const DefaultTimeout = 5 * time.Second

// Runner spawns detached tasks. The zero value is not usable; use NewRunner.
type Runner struct {
	logger  zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner creates a runner whose tasks each get timeout to finish.
func NewRunner(logger zerolog.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{logger: logger, timeout: timeout}
}

// Go runs fn in its own goroutine. The task keeps ctx values but not its
// cancellation, so it outlives the request that spawned it. Errors and panics
// are logged at warn level.
func (r *Runner) Go(ctx context.Context, task string, fn func(ctx context.Context) error) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				detachedTasks.WithLabelValues(task, "panic").Inc()
				r.logger.Error().
					Str("task", task).
					Str("panic", fmt.Sprint(p)).
					Msg("Detached task panicked")
			}
		}()

		if err := fn(taskCtx); err != nil {
			detachedTasks.WithLabelValues(task, "error").Inc()
			r.logger.Warn().Err(err).Str("task", task).Msg("Detached task failed")
			return
		}
		detachedTasks.WithLabelValues(task, "ok").Inc()
	}()
}

// Wait blocks until every spawned task has finished. Request paths never call
// it; it exists for shutdown and tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
