// Package repository stores users, expenses and refresh tokens in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// psql builds statements with PostgreSQL placeholders; execution stays on pgx.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const applicationName = "expensetrack"

// Repository is the only component that talks to PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New opens a pool against databaseURL and checks it with a ping. Pool
// limits given in the URL (pool_max_conns and friends) take precedence.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	tunePool(cfg, databaseURL)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func tunePool(cfg *pgxpool.Config, databaseURL string) {
	explicit := func(param string) bool { return strings.Contains(databaseURL, param+"=") }

	if !explicit("pool_max_conns") {
		cfg.MaxConns = 10
	}
	if !explicit("pool_min_conns") {
		cfg.MinConns = 2
	}
	if !explicit("pool_max_conn_idle_time") {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
}

// Ping backs the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close waits for checked-out connections and closes the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool exposes the pool to integration test helpers.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
