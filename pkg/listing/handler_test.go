package listing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/fastlist/internal/testutil"
	"github.com/Sternrassler/fastlist/pkg/cache"
)

type decodedList struct {
	Data       []testutil.Widget `json:"data"`
	Pagination struct {
		Total   int64 `json:"total"`
		Skip    int   `json:"skip"`
		Take    int   `json:"take"`
		HasMore bool  `json:"hasMore"`
	} `json:"pagination"`
	Cached       bool   `json:"cached"`
	CacheHit     bool   `json:"cacheHit"`
	ResponseTime *int64 `json:"responseTime"`
	DBTime       *int64 `json:"dbTime"`
}

func get(t *testing.T, h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) decodedList {
	t.Helper()
	var out decodedList
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestServeList_MissThenHit(t *testing.T) {
	src := testutil.NewWidgetSource(widgets(30, "7")...)
	svc, runner := newWidgetService(cache.NewMemoryStore(), src)

	w := get(t, svc, "/api/widgets?skip=0&take=20", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	first := decode(t, w)
	if first.Cached || first.CacheHit {
		t.Error("first response marked cached")
	}
	if first.DBTime == nil || first.ResponseTime == nil {
		t.Error("miss response lacks timing diagnostics")
	}
	if !first.Pagination.HasMore || first.Pagination.Total != 30 {
		t.Errorf("pagination = %+v", first.Pagination)
	}
	runner.Wait()

	w = get(t, svc, "/api/widgets?take=20&skip=0", nil)
	second := decode(t, w)
	if !second.Cached || !second.CacheHit {
		t.Error("second response not served from cache")
	}
	if second.DBTime != nil {
		t.Error("hit response carries dbTime")
	}
	if second.Pagination != first.Pagination || len(second.Data) != len(first.Data) {
		t.Error("cached response differs from fresh response")
	}

	hitCC := w.Header().Get("Cache-Control")
	if hitCC != widgetConfig.HitPolicy.CacheControl() {
		t.Errorf("hit Cache-Control = %q", hitCC)
	}
}

func TestServeList_ConditionalRequest(t *testing.T) {
	src := testutil.NewWidgetSource(widgets(3, "1")...)
	svc, runner := newWidgetService(cache.NewMemoryStore(), src)

	w := get(t, svc, "/api/widgets", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	runner.Wait()

	w = get(t, svc, "/api/widgets", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("304 carried a body: %q", w.Body.String())
	}
	if w.Header().Get("ETag") != etag {
		t.Error("304 lost ETag")
	}

	w = get(t, svc, "/api/widgets", map[string]string{"If-None-Match": "not-quoted"})
	if w.Code != http.StatusOK {
		t.Errorf("malformed validator status = %d, want 200", w.Code)
	}
}

func TestServeList_ValidatorAcrossEncodings(t *testing.T) {
	src := testutil.NewWidgetSource(widgets(60, "1")...)
	svc, runner := newWidgetService(cache.NewMemoryStore(), src)

	plain := get(t, svc, "/api/widgets?take=60", nil)
	runner.Wait()
	gz := get(t, svc, "/api/widgets?take=60", map[string]string{"Accept-Encoding": "gzip"})

	if gz.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", gz.Header().Get("Content-Encoding"))
	}
	etag := plain.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Errorf("ETag %q is not weak", etag)
	}
	if gz.Header().Get("ETag") != etag {
		t.Errorf("encodings carry different validators: %q vs %q", gz.Header().Get("ETag"), etag)
	}

	w := get(t, svc, "/api/widgets?take=60", map[string]string{"Accept-Encoding": "zstd", "If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", w.Code)
	}
}

func TestServeList_ConditionalOnMiss(t *testing.T) {
	src := testutil.NewWidgetSource(widgets(3, "1")...)
	svc, _ := newWidgetService(testutil.FailingStore{}, src)

	etag := get(t, svc, "/api/widgets", nil).Header().Get("ETag")
	w := get(t, svc, "/api/widgets", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304 for unchanged fresh data", w.Code)
	}
}

func TestServeList_SourceFailure(t *testing.T) {
	src := testutil.NewWidgetSource()
	src.FailWith(errors.New("db down"))
	svc, _ := newWidgetService(cache.NewMemoryStore(), src)

	w := get(t, svc, "/api/widgets", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body struct {
		Error        string `json:"error"`
		ResponseTime *int64 `json:"responseTime"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error == "" || body.ResponseTime == nil {
		t.Errorf("error body = %s", w.Body.String())
	}
	if strings.Contains(body.Error, "db down") {
		t.Error("internal error leaked to client")
	}
}

func TestServeList_FailOpen(t *testing.T) {
	src := testutil.NewWidgetSource(widgets(4, "1")...)
	svc, _ := newWidgetService(testutil.FailingStore{}, src)

	for i := 0; i < 3; i++ {
		w := get(t, svc, "/api/widgets", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d with store down", w.Code)
		}
		if got := decode(t, w).Pagination.Total; got != 4 {
			t.Errorf("total = %d, want 4", got)
		}
	}
}

func TestServeList_Compression(t *testing.T) {
	small := testutil.NewWidgetSource(widgets(1, "1")...)
	svc, _ := newWidgetService(cache.NewMemoryStore(), small)
	w := get(t, svc, "/api/widgets", map[string]string{"Accept-Encoding": "gzip"})
	if enc := w.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("small response encoded as %q", enc)
	}

	large := testutil.NewWidgetSource(widgets(100, "1")...)
	svc, _ = newWidgetService(cache.NewMemoryStore(), large)
	w = get(t, svc, "/api/widgets?take=100", map[string]string{"Accept-Encoding": "gzip"})
	if enc := w.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Errorf("large response Content-Encoding = %q, want gzip", enc)
	}
	if w.Header().Get("ETag") == "" || w.Header().Get("Cache-Control") == "" {
		t.Error("compressed response lost cache headers")
	}
}

func TestServeFlush(t *testing.T) {
	store := cache.NewMemoryStore()
	src := testutil.NewWidgetSource(widgets(3, "1")...)
	svc, runner := newWidgetService(store, src)

	get(t, svc, "/api/widgets", nil)
	runner.Wait()
	_ = store.Set(context.Background(), "other:list:x", []byte("1"), time.Minute)

	r := httptest.NewRequest(http.MethodDelete, "/api/widgets?pattern=*", nil)
	w := httptest.NewRecorder()
	svc.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Pattern string `json:"pattern"`
		Deleted int64  `json:"deleted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Pattern != "widget:*" || body.Deleted != 2 {
		t.Errorf("flush body = %+v", body)
	}
	if store.Len() != 1 {
		t.Errorf("flush escaped the entity namespace, %d entries left", store.Len())
	}
}

func TestServeFlush_StoreDown(t *testing.T) {
	svc, _ := newWidgetService(testutil.FailingStore{}, testutil.NewWidgetSource())

	r := httptest.NewRequest(http.MethodDelete, "/api/widgets", nil)
	w := httptest.NewRecorder()
	svc.ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestScopePattern(t *testing.T) {
	svc, _ := newWidgetService(cache.NewMemoryStore(), testutil.NewWidgetSource())

	tests := map[string]string{
		"":              "widget:*",
		"*":             "widget:*",
		"widget:list:*": "widget:list:*",
		"list:*":        "widget:list:*",
		"product:*":     "widget:product:*",
	}
	for in, want := range tests {
		if got := svc.scopePattern(in); got != want {
			t.Errorf("scopePattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	svc, _ := newWidgetService(cache.NewMemoryStore(), testutil.NewWidgetSource())

	r := httptest.NewRequest(http.MethodPost, "/api/widgets", nil)
	w := httptest.NewRecorder()
	svc.ServeHTTP(w, r)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
