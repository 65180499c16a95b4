package listing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fastlist/internal/testutil"
	"github.com/Sternrassler/fastlist/pkg/async"
	"github.com/Sternrassler/fastlist/pkg/cache"
	"github.com/Sternrassler/fastlist/pkg/httpcache"
	"github.com/Sternrassler/fastlist/pkg/pagination"
)

var widgetConfig = Config{
	Entity:     "widget",
	Defaults:   cache.FilterDefaults{Take: 20, SortField: "name", SortDirection: cache.SortAsc},
	SortFields: []string{"name", "createdAt"},
	TTL:        time.Minute,
	HitPolicy: httpcache.Policy{
		CompressionThreshold: 512,
		BrowserMaxAge:        60 * time.Second,
		CDNMaxAge:            300 * time.Second,
		StaleWhileRevalidate: 600 * time.Second,
	},
	MissPolicy: httpcache.Policy{
		CompressionThreshold: 512,
		BrowserMaxAge:        30 * time.Second,
		CDNMaxAge:            120 * time.Second,
		StaleWhileRevalidate: 300 * time.Second,
	},
}

func widgets(n int, company string) []testutil.Widget {
	out := make([]testutil.Widget, n)
	for i := range out {
		out[i] = testutil.Widget{ID: fmt.Sprintf("w-%s-%d", company, i), CompanyID: company, Name: fmt.Sprintf("Widget %03d", i)}
	}
	return out
}

func newWidgetService(store cache.Store, src Source[testutil.Widget]) (*Service[testutil.Widget], *async.Runner) {
	runner := async.NewRunner(zerolog.Nop(), time.Second)
	return NewService(widgetConfig, store, src, runner, zerolog.Nop()), runner
}

func TestService_MissThenHit(t *testing.T) {
	src := testutil.NewWidgetSource(widgets(30, "7")...)
	svc, runner := newWidgetService(cache.NewMemoryStore(), src)
	ctx := context.Background()

	first, err := svc.List(ctx, cache.QueryFilterSpec{Skip: 0, Take: 20})
	if err != nil {
		t.Fatalf("first List failed: %v", err)
	}
	if first.Cached {
		t.Error("first request should not be cached")
	}
	runner.Wait()

	second, err := svc.List(ctx, cache.QueryFilterSpec{Skip: 0, Take: 20})
	if err != nil {
		t.Fatalf("second List failed: %v", err)
	}
	if !second.Cached {
		t.Error("second request should be cached")
	}
	if second.Pagination != first.Pagination {
		t.Errorf("pagination differs: %+v vs %+v", second.Pagination, first.Pagination)
	}
	if len(second.Data) != len(first.Data) || second.Data[0] != first.Data[0] {
		t.Error("cached data differs from source data")
	}
	if got := src.FindCalls.Load(); got != 1 {
		t.Errorf("source queried %d times, want 1", got)
	}
}

func TestService_PageKeepsItsOwnTotal(t *testing.T) {
	src := testutil.NewWidgetSource(widgets(25, "7")...)
	svc, runner := newWidgetService(cache.NewMemoryStore(), src)
	ctx := context.Background()

	first, err := svc.List(ctx, cache.QueryFilterSpec{Company: "7", Take: 20})
	if err != nil {
		t.Fatal(err)
	}
	runner.Wait()

	// rows written without an invalidation reaching this cache
	for _, w := range widgets(40, "7") {
		w.ID += "-new"
		src.Add(w)
	}

	second, err := svc.List(ctx, cache.QueryFilterSpec{Company: "7", Skip: 20, Take: 20})
	if err != nil {
		t.Fatal(err)
	}
	runner.Wait()
	if second.Cached || second.Pagination.Total != 65 {
		t.Fatalf("page 2: cached=%v total=%d, want fresh total 65", second.Cached, second.Pagination.Total)
	}

	again, err := svc.List(ctx, cache.QueryFilterSpec{Company: "7", Take: 20})
	if err != nil {
		t.Fatal(err)
	}
	if !again.Cached {
		t.Fatal("page 1 should be served from cache")
	}
	if again.Pagination != first.Pagination {
		t.Errorf("page 1 pagination = %+v, want %+v as cached with its data", again.Pagination, first.Pagination)
	}
	if again.Data[0] != first.Data[0] {
		t.Errorf("page 1 data changed: %+v vs %+v", again.Data[0], first.Data[0])
	}
}

func TestService_PartialHitIsMiss(t *testing.T) {
	tests := []struct {
		name    string
		dropKey func(dataKey, countKey string) string
	}{
		{name: "count missing", dropKey: func(_, countKey string) string { return countKey }},
		{name: "data missing", dropKey: func(dataKey, _ string) string { return dataKey }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cache.NewMemoryStore()
			src := testutil.NewWidgetSource(widgets(5, "1")...)
			svc, runner := newWidgetService(store, src)
			ctx := context.Background()

			if _, err := svc.List(ctx, cache.QueryFilterSpec{}); err != nil {
				t.Fatal(err)
			}
			runner.Wait()

			dataKey, countKey := cache.Keys("widget", svc.Normalize(cache.QueryFilterSpec{}), widgetConfig.Defaults)
			if _, err := store.DelPattern(ctx, tt.dropKey(dataKey, countKey)); err != nil {
				t.Fatal(err)
			}

			res, err := svc.List(ctx, cache.QueryFilterSpec{})
			if err != nil {
				t.Fatal(err)
			}
			if res.Cached {
				t.Error("partial hit served from cache")
			}
			if src.FindCalls.Load() != 2 || src.CountCalls.Load() != 2 {
				t.Errorf("expected both queries re-run, find=%d count=%d", src.FindCalls.Load(), src.CountCalls.Load())
			}
		})
	}
}

func TestService_FailOpen(t *testing.T) {
	src := testutil.NewWidgetSource(widgets(25, "3")...)
	svc, runner := newWidgetService(testutil.FailingStore{}, src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := svc.List(ctx, cache.QueryFilterSpec{Take: 10})
		if err != nil {
			t.Fatalf("List %d failed with store down: %v", i, err)
		}
		if res.Cached {
			t.Error("result marked cached with store down")
		}
		if res.Pagination.Total != 25 || len(res.Data) != 10 {
			t.Errorf("unexpected result: total=%d rows=%d", res.Pagination.Total, len(res.Data))
		}
	}
	runner.Wait()

	if got := src.FindCalls.Load(); got != 3 {
		t.Errorf("source queried %d times, want 3", got)
	}
}

func TestService_SourceFailure(t *testing.T) {
	src := testutil.NewWidgetSource()
	src.FailWith(errors.New("connection reset"))
	svc, _ := newWidgetService(cache.NewMemoryStore(), src)

	_, err := svc.List(context.Background(), cache.QueryFilterSpec{})
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindSourceQuery {
		t.Errorf("kind = %q, want %q", KindOf(err), KindSourceQuery)
	}
}

func TestService_PaginationInvariant(t *testing.T) {
	src := testutil.NewWidgetSource(widgets(45, "9")...)
	svc, runner := newWidgetService(cache.NewMemoryStore(), src)
	ctx := context.Background()

	for _, skip := range []int{0, 20, 40, 60} {
		for pass := 0; pass < 2; pass++ {
			res, err := svc.List(ctx, cache.QueryFilterSpec{Skip: skip, Take: 20})
			if err != nil {
				t.Fatal(err)
			}
			p := res.Pagination
			if p.HasMore != (int64(p.Skip+p.Take) < p.Total) {
				t.Errorf("skip=%d cached=%v: hasMore=%v total=%d", skip, res.Cached, p.HasMore, p.Total)
			}
			runner.Wait()
		}
	}
}

func TestService_UnknownSortFieldFallsBack(t *testing.T) {
	svc, _ := newWidgetService(cache.NewMemoryStore(), testutil.NewWidgetSource())

	n := svc.Normalize(cache.QueryFilterSpec{SortField: "password"})
	if n.SortField != "name" {
		t.Errorf("SortField = %q, want default", n.SortField)
	}
	n = svc.Normalize(cache.QueryFilterSpec{SortField: "createdAt"})
	if n.SortField != "createdAt" {
		t.Errorf("SortField = %q, want createdAt", n.SortField)
	}
}

func TestService_Warm(t *testing.T) {
	store := cache.NewMemoryStore()
	src := testutil.NewWidgetSource(widgets(50, "2")...)
	svc, runner := newWidgetService(store, src)

	loaded, err := svc.Warm(context.Background(), pagination.NewWarmer(pagination.DefaultConfig()), 3)
	if err != nil || loaded != 3 {
		t.Fatalf("Warm = %d, %v", loaded, err)
	}
	runner.Wait()

	res, err := svc.List(context.Background(), cache.QueryFilterSpec{Skip: 40})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cached {
		t.Error("warmed page not served from cache")
	}
}
