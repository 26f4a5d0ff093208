// Package db provides PostgreSQL-backed repositories for the outreach
// sequencer. All repositories accept a DBTX, satisfied by both *pgxpool.Pool
// and pgx.Tx.
//
// Tables used:
//
//	contacts     (id PK, organization_name, email, city, region, status, auth_token)
//	events       (id PK, address, city, region, postal_code, price, beds, baths, observed_at, type)
//	sequences    (id PK, contact_id FK, event_id FK,
//	              event_address, event_city, event_region, event_price, event_beds, event_baths,
//	              day1_sent_at, day3_sent_at, day7_sent_at, email_variant, status, created_at,
//	              UNIQUE (contact_id, event_id),
//	              CHECK (day3_sent_at IS NULL OR day3_sent_at >= day1_sent_at),
//	              CHECK (day7_sent_at IS NULL OR day7_sent_at >= COALESCE(day3_sent_at, day1_sent_at)))
//	daily_stats  (date PK, sent)
//	job_locks    (id PK, worker_id, locked_at, expires_at)
//	job_history  (id BIGSERIAL PK, job_type, started_at, finished_at, status, items_count, error)
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolOptions tunes the connection pool. Zero values keep the pgxpool defaults.
type PoolOptions struct {
	MaxConns          int
	MinConns          int
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewPool parses url, applies opts and verifies connectivity with a ping.
func NewPool(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = opts.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
