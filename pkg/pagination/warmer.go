package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds warmer configuration
type Config struct {
	// MaxConcurrency is the maximum number of pages loaded in parallel
	MaxConcurrency int
	// Timeout per page load
	Timeout time.Duration
}

// DefaultConfig returns a conservative configuration that leaves the
// database room for user traffic
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        5 * time.Second,
	}
}

// LoadFunc loads a single zero-based page.
type LoadFunc func(ctx context.Context, page int) error

// Warmer loads list pages in parallel.
type Warmer struct {
	config Config
}

// NewWarmer creates a warmer, substituting defaults for unset fields
func NewWarmer(config Config) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Warmer{config: config}
}

// Warm loads pages 0..pages-1 and returns how many succeeded.
// All pages are attempted; the first error is returned.
func (w *Warmer) Warm(ctx context.Context, entity string, pages int, load LoadFunc) (int, error) {
	if pages <= 0 {
		return 0, nil
	}
	start := time.Now()

	pageQueue := make(chan int, pages)
	for page := 0; page < pages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	var (
		mu       sync.Mutex
		loaded   int
		firstErr error
		wg       sync.WaitGroup
	)

	workers := min(w.config.MaxConcurrency, pages)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for page := range pageQueue {
				if ctx.Err() != nil {
					return
				}

				pageCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
				err := load(pageCtx, page)
				cancel()

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("warm %s page %d: %w", entity, page, err)
					}
					log.Warn().
						Err(err).
						Str("entity", entity).
						Int("worker_id", workerID).
						Int("page", page).
						Msg("Page warm failed")
				} else {
					loaded++
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	log.Debug().
		Str("entity", entity).
		Int("pages", loaded).
		Int("requested", pages).
		Dur("duration", time.Since(start)).
		Msg("Warm complete")

	return loaded, firstErr
}
