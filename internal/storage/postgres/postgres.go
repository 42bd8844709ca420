// Package postgres persists signals, backtest runs and settings on a
// shared pgx connection pool. Candle series live in ClickHouse; only the
// row-shaped entities land here.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pingTimeout bounds the startup connectivity probe so a wrong DSN fails
// fast instead of hanging the pipeline.
const pingTimeout = 5 * time.Second

// Pool is the pgx connection pool shared by the stores in this package.
type Pool struct {
	*pgxpool.Pool
}

// NewPool opens a pool for the DSN and probes it once, so misconfigured
// credentials surface at startup rather than on the first insert.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close releases all pooled connections.
func (p *Pool) Close() {
	p.Pool.Close()
}

// codeUniqueViolation is the SQLSTATE the stores map to ErrDuplicateKey.
const codeUniqueViolation = "23505"

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
