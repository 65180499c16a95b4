// Package mutation serves the write endpoints. Each successful write is answered
// first and then handed to invalidation, so a response never waits on the cache.
package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/fastlist/pkg/cache"
	"github.com/Sternrassler/fastlist/pkg/entities"
	"github.com/Sternrassler/fastlist/pkg/invalidation"
	"github.com/Sternrassler/fastlist/pkg/store/postgres"
)

const maxBodyBytes = 1 << 20

var mutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fastlist_mutations_total",
		Help: "Write requests by entity, operation and result",
	},
	[]string{"entity", "operation", "result"},
)

// Repository writes one entity to the source of record.
type Repository[T entities.Record] interface {
	Create(ctx context.Context, row T) (T, error)
	Update(ctx context.Context, id string, row T) (T, error)
	Delete(ctx context.Context, id string) (T, error)
}

// Dispatcher schedules cache invalidation for a mutation.
type Dispatcher interface {
	Dispatch(ctx context.Context, m invalidation.Mutation)
}

// Handler serves POST, PUT and DELETE for one entity.
type Handler[T entities.Record] struct {
	entity string
	repo   Repository[T]
	inv    Dispatcher
	logger zerolog.Logger
}

// NewHandler creates the write handler for entity.
func NewHandler[T entities.Record](entity string, repo Repository[T], inv Dispatcher, logger zerolog.Logger) *Handler[T] {
	return &Handler[T]{
		entity: entity,
		repo:   repo,
		inv:    inv,
		logger: logger.With().Str("component", "mutation").Str("entity", entity).Logger(),
	}
}

type dataBody struct {
	Data any `json:"data"`
}

type deleteBody struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Create handles POST /api/<entity>.
func (h *Handler[T]) Create(w http.ResponseWriter, r *http.Request) {
	row, ok := h.decode(w, r, "create")
	if !ok {
		return
	}
	created, err := h.repo.Create(r.Context(), row)
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	h.done(w, r, "create", http.StatusCreated, dataBody{Data: created}, created)
}

// Update handles PUT /api/<entity>/{id}.
func (h *Handler[T]) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.reject(w, "update", "missing id")
		return
	}
	row, ok := h.decode(w, r, "update")
	if !ok {
		return
	}
	updated, err := h.repo.Update(r.Context(), id, row)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	h.done(w, r, "update", http.StatusOK, dataBody{Data: updated}, updated)
}

// Delete handles DELETE /api/<entity>/{id}.
func (h *Handler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.reject(w, "delete", "missing id")
		return
	}
	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, "delete", err)
		return
	}
	h.done(w, r, "delete", http.StatusOK, deleteBody{Success: true, ID: id}, deleted)
}

func (h *Handler[T]) decode(w http.ResponseWriter, r *http.Request, op string) (T, bool) {
	var row T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&row); err != nil {
		h.reject(w, op, "invalid JSON body: "+err.Error())
		return row, false
	}
	if row.Company() <= 0 {
		h.reject(w, op, "companyId is required")
		return row, false
	}
	return row, true
}

// done writes the response and then schedules invalidation.
func (h *Handler[T]) done(w http.ResponseWriter, r *http.Request, op string, status int, body any, row T) {
	mutations.WithLabelValues(h.entity, op, "ok").Inc()
	writeJSON(w, status, body)

	h.inv.Dispatch(r.Context(), invalidation.Mutation{
		Entity:      h.entity,
		ID:          row.RecordID(),
		AggregateID: cache.CompanyFromAny(row.Company()),
	})
}

func (h *Handler[T]) reject(w http.ResponseWriter, op, msg string) {
	mutations.WithLabelValues(h.entity, op, "invalid").Inc()
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func (h *Handler[T]) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, postgres.ErrNotFound) {
		mutations.WithLabelValues(h.entity, op, "not_found").Inc()
		writeJSON(w, http.StatusNotFound, errorBody{Error: h.entity + " not found"})
		return
	}
	mutations.WithLabelValues(h.entity, op, "error").Inc()
	h.logger.Error().Err(err).Str("operation", op).Msg("Write failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to " + op + " " + h.entity})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
