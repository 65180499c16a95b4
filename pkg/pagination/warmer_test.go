package pagination

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWarmer_LoadsAllPages(t *testing.T) {
	w := NewWarmer(Config{MaxConcurrency: 3, Timeout: time.Second})

	var mu sync.Mutex
	seen := make(map[int]bool)
	loaded, err := w.Warm(context.Background(), "product", 5, func(ctx context.Context, page int) error {
		mu.Lock()
		seen[page] = true
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Warm failed: %v", err)
	}
	if loaded != 5 {
		t.Errorf("loaded %d pages, want 5", loaded)
	}
	for page := 0; page < 5; page++ {
		if !seen[page] {
			t.Errorf("page %d not loaded", page)
		}
	}
}

func TestWarmer_ContinuesAfterError(t *testing.T) {
	w := NewWarmer(Config{MaxConcurrency: 1})
	boom := errors.New("boom")

	loaded, err := w.Warm(context.Background(), "vendor", 3, func(ctx context.Context, page int) error {
		if page == 1 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if loaded != 2 {
		t.Errorf("loaded %d pages, want 2", loaded)
	}
}

func TestWarmer_BoundedConcurrency(t *testing.T) {
	w := NewWarmer(Config{MaxConcurrency: 2})

	var inFlight, peak int32
	_, _ = w.Warm(context.Background(), "client", 8, func(ctx context.Context, page int) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds 2", peak)
	}
}

func TestWarmer_ZeroPages(t *testing.T) {
	w := NewWarmer(DefaultConfig())
	loaded, err := w.Warm(context.Background(), "wallet", 0, func(context.Context, int) error {
		t.Error("load called for zero pages")
		return nil
	})
	if loaded != 0 || err != nil {
		t.Errorf("Warm(0) = %d, %v", loaded, err)
	}
}
