// Package postgres is the source of record for the list endpoints: pgx-backed
// repositories whose queries are built with squirrel.
package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

// Querier is the subset of *pgxpool.Pool the repositories use.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DB owns the connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Open creates a pool for dsn and verifies connectivity.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*DB, error) {
	logger.Info().Msg("Initializing pgx pool")
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info().
		Str("host", cfg.ConnConfig.Host).
		Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).
		Msg("pgx pool initialized")
	return &DB{pool: pool, logger: logger}, nil
}

// Pool exposes the underlying pool to the repositories.
func (d *DB) Pool() *pgxpool.Pool { return d.pool }

// Ping reports whether the database answers.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (d *DB) Close() {
	d.logger.Info().Msg("Closing pgx pool")
	d.pool.Close()
}

// qb is the statement builder for Postgres placeholders.
func qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}
