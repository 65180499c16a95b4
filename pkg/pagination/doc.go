// Package pagination provides list pagination metadata and a worker pool that
// pre-loads the leading pages of a list into the cache.
//
// Meta always satisfies HasMore == (Skip+Take < Total).
//
// Example usage:
//
//	warmer := pagination.NewWarmer(pagination.DefaultConfig())
//	loaded, err := warmer.Warm(ctx, "product", 3, func(ctx context.Context, page int) error {
//		_, err := svc.List(ctx, cache.QueryFilterSpec{Skip: page * 20, Take: 20})
//		return err
//	})
//
// The warmer:
//   - Spawns a bounded worker pool (default 4 workers)
//   - Applies a per-page timeout
//   - Keeps going when a page fails and reports the first error
package pagination
