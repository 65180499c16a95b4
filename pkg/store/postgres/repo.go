package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/fastlist/pkg/cache"
	"github.com/Sternrassler/fastlist/pkg/entities"
)

// table describes how one entity is stored.
type table[T entities.Record] struct {
	entity string
	name   string // table name, used for writes
	from   string // FROM clause with joins, used for reads
	cols   columns
	sel    []string
	scan   func(row pgx.Row) (T, error)
	values func(row T) map[string]any
}

// Repo reads and writes one entity. It implements listing.Source.
type Repo[T entities.Record] struct {
	db     Querier
	t      table[T]
	logger zerolog.Logger
}

func newRepo[T entities.Record](db Querier, t table[T], logger zerolog.Logger) *Repo[T] {
	return &Repo[T]{
		db:     db,
		t:      t,
		logger: logger.With().Str("component", "postgres").Str("entity", t.entity).Logger(),
	}
}

func (r *Repo[T]) selectQuery(spec cache.QueryFilterSpec) (string, []any, error) {
	sb := qb().Select(r.t.sel...).From(r.t.from)
	sb = applyFilter(sb, spec, r.t.cols)
	sb = applyPage(sb, spec, r.t.cols)
	return sb.ToSql()
}

func (r *Repo[T]) countQuery(spec cache.QueryFilterSpec) (string, []any, error) {
	sb := qb().Select("count(*)").From(r.t.from)
	sb = applyFilter(sb, spec, r.t.cols)
	return sb.ToSql()
}

// FindMany returns one page of rows matching spec.
func (r *Repo[T]) FindMany(ctx context.Context, spec cache.QueryFilterSpec) ([]T, error) {
	sqlStr, args, err := r.selectQuery(spec)
	if err != nil {
		return nil, fmt.Errorf("build %s select: %w", r.t.entity, err)
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.t.entity, err)
	}
	defer rows.Close()

	out := make([]T, 0, spec.Take)
	for rows.Next() {
		row, err := r.t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.t.entity, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.t.entity, err)
	}

	r.logger.Debug().
		Str("sql", sqlStr).
		Int("rows", len(out)).
		Dur("duration", time.Since(start)).
		Msg("FindMany")
	return out, nil
}

// Count returns the number of rows matching spec's filters.
func (r *Repo[T]) Count(ctx context.Context, spec cache.QueryFilterSpec) (int64, error) {
	sqlStr, args, err := r.countQuery(spec)
	if err != nil {
		return 0, fmt.Errorf("build %s count: %w", r.t.entity, err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.t.entity, err)
	}
	return n, nil
}

// Get returns the row with id.
func (r *Repo[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	sqlStr, args, err := qb().Select(r.t.sel...).From(r.t.from).
		Where(sq.Eq{r.t.cols.ID: id}).ToSql()
	if err != nil {
		return zero, fmt.Errorf("build %s get: %w", r.t.entity, err)
	}
	row, err := r.t.scan(r.db.QueryRow(ctx, sqlStr, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, fmt.Errorf("%s %s: %w", r.t.entity, id, ErrNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", r.t.entity, err)
	}
	return row, nil
}

// Create inserts row under a fresh id and returns the stored row.
func (r *Repo[T]) Create(ctx context.Context, row T) (T, error) {
	var zero T
	id := uuid.NewString()
	values := r.t.values(row)
	values["id"] = id

	sqlStr, args, err := qb().Insert(r.t.name).SetMap(values).ToSql()
	if err != nil {
		return zero, fmt.Errorf("build %s insert: %w", r.t.entity, err)
	}
	if _, err := r.db.Exec(ctx, sqlStr, args...); err != nil {
		return zero, fmt.Errorf("insert %s: %w", r.t.entity, err)
	}
	r.logger.Info().Str("id", id).Int64("company_id", row.Company()).Msg("Created")
	return r.Get(ctx, id)
}

// Update overwrites the writable columns of the row with id.
func (r *Repo[T]) Update(ctx context.Context, id string, row T) (T, error) {
	var zero T
	sqlStr, args, err := qb().Update(r.t.name).
		SetMap(r.t.values(row)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return zero, fmt.Errorf("build %s update: %w", r.t.entity, err)
	}
	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return zero, fmt.Errorf("update %s: %w", r.t.entity, err)
	}
	if tag.RowsAffected() == 0 {
		return zero, fmt.Errorf("%s %s: %w", r.t.entity, id, ErrNotFound)
	}
	r.logger.Info().Str("id", id).Msg("Updated")
	return r.Get(ctx, id)
}

// Delete removes the row with id and returns it as it was.
func (r *Repo[T]) Delete(ctx context.Context, id string) (T, error) {
	var zero T
	old, err := r.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	sqlStr, args, err := qb().Delete(r.t.name).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return zero, fmt.Errorf("build %s delete: %w", r.t.entity, err)
	}
	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return zero, fmt.Errorf("delete %s: %w", r.t.entity, err)
	}
	if tag.RowsAffected() == 0 {
		return zero, fmt.Errorf("%s %s: %w", r.t.entity, id, ErrNotFound)
	}
	r.logger.Info().Str("id", id).Msg("Deleted")
	return old, nil
}
