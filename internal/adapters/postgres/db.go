package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool tuning. The API and tracker share one Postgres instance; the
// nearby/search queries are short, so a moderate pool with idle
// reaping keeps connection counts predictable under burst traffic.
const (
	poolMaxConns    = 50
	poolMinConns    = 2
	poolMaxIdleTime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// DB wraps the shared pgx connection pool used by all repositories.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a connection pool against dsn and verifies it with a ping
// before returning.
func New(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = poolMaxConns
	cfg.MinConns = poolMinConns
	cfg.MaxConnIdleTime = poolMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases all pooled connections.
func (db *DB) Close() {
	db.Pool.Close()
}
