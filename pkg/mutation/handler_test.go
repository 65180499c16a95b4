package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fastlist/pkg/async"
	"github.com/Sternrassler/fastlist/pkg/cache"
	"github.com/Sternrassler/fastlist/pkg/entities"
	"github.com/Sternrassler/fastlist/pkg/invalidation"
	"github.com/Sternrassler/fastlist/pkg/store/postgres"
)

// fakeVendors is an in-memory vendor repository.
type fakeVendors struct {
	mu   sync.Mutex
	rows map[string]entities.VendorRow
	seq  int
	err  error
}

func newFakeVendors() *fakeVendors {
	return &fakeVendors{rows: map[string]entities.VendorRow{}}
}

func (f *fakeVendors) Create(_ context.Context, row entities.VendorRow) (entities.VendorRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return entities.VendorRow{}, f.err
	}
	f.seq++
	row.ID = fmt.Sprintf("v-%d", f.seq)
	f.rows[row.ID] = row
	return row, nil
}

func (f *fakeVendors) Update(_ context.Context, id string, row entities.VendorRow) (entities.VendorRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return entities.VendorRow{}, fmt.Errorf("vendor %s: %w", id, postgres.ErrNotFound)
	}
	row.ID = id
	f.rows[id] = row
	return row, nil
}

func (f *fakeVendors) Delete(_ context.Context, id string) (entities.VendorRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return entities.VendorRow{}, fmt.Errorf("vendor %s: %w", id, postgres.ErrNotFound)
	}
	delete(f.rows, id)
	return row, nil
}

// recorder captures dispatched mutations.
type recorder struct {
	mu   sync.Mutex
	seen []invalidation.Mutation
}

func (r *recorder) Dispatch(_ context.Context, m invalidation.Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, m)
}

func (r *recorder) all() []invalidation.Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]invalidation.Mutation(nil), r.seen...)
}

func TestCreate_RespondsThenDispatches(t *testing.T) {
	repo := newFakeVendors()
	rec := &recorder{}
	h := NewHandler[entities.VendorRow](entities.Vendor, repo, rec, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/vendors", strings.NewReader(`{"companyId":7,"name":"Acme","active":true}`))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body struct {
		Data entities.VendorRow `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data.ID != "v-1" || body.Data.Name != "Acme" {
		t.Errorf("unexpected body %+v", body.Data)
	}

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("dispatched %d mutations, want 1", len(got))
	}
	want := invalidation.Mutation{Entity: entities.Vendor, ID: "v-1", AggregateID: "7"}
	if got[0] != want {
		t.Errorf("dispatched %+v, want %+v", got[0], want)
	}
}

func TestCreate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"companyId":`},
		{"missing company", `{"name":"Acme"}`},
		{"unknown field", `{"companyId":1,"nmae":"typo"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			h := NewHandler[entities.VendorRow](entities.Vendor, newFakeVendors(), rec, zerolog.Nop())
			w := httptest.NewRecorder()
			h.Create(w, httptest.NewRequest(http.MethodPost, "/api/vendors", strings.NewReader(tt.body)))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if len(rec.all()) != 0 {
				t.Error("rejected write must not invalidate")
			}
		})
	}
}

func TestCreate_RepositoryFailure(t *testing.T) {
	repo := newFakeVendors()
	repo.err = errors.New("connection reset")
	rec := &recorder{}
	h := NewHandler[entities.VendorRow](entities.Vendor, repo, rec, zerolog.Nop())

	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/api/vendors", strings.NewReader(`{"companyId":7,"name":"Acme"}`)))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if len(rec.all()) != 0 {
		t.Error("failed write must not invalidate")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newFakeVendors()
	seeded, _ := repo.Create(context.Background(), entities.VendorRow{CompanyID: 3, Name: "Old"})
	rec := &recorder{}
	h := NewHandler[entities.VendorRow](entities.Vendor, repo, rec, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPut, "/api/vendors/"+seeded.ID, strings.NewReader(`{"companyId":3,"name":"New"}`))
	req.SetPathValue("id", seeded.ID)
	w := httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/vendors/"+seeded.ID, nil)
	req.SetPathValue("id", seeded.ID)
	w = httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":true`) {
		t.Errorf("unexpected delete body %s", w.Body.String())
	}

	got := rec.all()
	if len(got) != 2 || got[1].AggregateID != "3" || got[1].ID != seeded.ID {
		t.Errorf("dispatched %+v", got)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	rec := &recorder{}
	h := NewHandler[entities.VendorRow](entities.Vendor, newFakeVendors(), rec, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPut, "/api/vendors/nope", strings.NewReader(`{"companyId":3,"name":"x"}`))
	req.SetPathValue("id", "nope")
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if len(rec.all()) != 0 {
		t.Error("missing row must not invalidate")
	}
}

func TestDelete_MissingID(t *testing.T) {
	h := NewHandler[entities.VendorRow](entities.Vendor, newFakeVendors(), &recorder{}, zerolog.Nop())
	w := httptest.NewRecorder()
	h.Delete(w, httptest.NewRequest(http.MethodDelete, "/api/vendors/", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// A vendor write clears the vendor and product lists through the real invalidation service.
func TestCreate_InvalidatesDependentLists(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	for _, k := range []string{"vendor:list:x", "product:list:x", "wallet:list:x"} {
		if err := store.Set(ctx, k, []byte("[]"), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	runner := async.NewRunner(zerolog.Nop(), time.Second)
	inv := invalidation.NewService(store, nil, runner, zerolog.Nop())
	h := NewHandler[entities.VendorRow](entities.Vendor, newFakeVendors(), inv, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/vendors", strings.NewReader(`{"companyId":7,"name":"Acme"}`))
	reqCtx, cancel := context.WithCancel(req.Context())
	w := httptest.NewRecorder()
	h.Create(w, req.WithContext(reqCtx))
	cancel()
	runner.Wait()

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if store.Len() != 1 {
		t.Errorf("%d entries left, want only the wallet list", store.Len())
	}
	if _, err := store.Get(ctx, "wallet:list:x"); err != nil {
		t.Errorf("wallet list should survive a vendor write: %v", err)
	}
}
