// Package postgres provides Postgres-backed venue and job repositories.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB is the subset of pgxpool.Pool the stores rely on.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS places (
	id             BIGSERIAL PRIMARY KEY,
	place_id       TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL DEFAULT '',
	website        TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	locale         TEXT NOT NULL DEFAULT '',
	country        TEXT NOT NULL DEFAULT '',
	needs_review   BOOLEAN NOT NULL DEFAULT TRUE,
	ignore         BOOLEAN NOT NULL DEFAULT FALSE,
	read_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	contacted_at   TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	country     TEXT NOT NULL,
	city        TEXT NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS job_places (
	job_id   TEXT NOT NULL REFERENCES jobs (id),
	position INTEGER NOT NULL,
	place_id TEXT NOT NULL REFERENCES places (place_id),
	PRIMARY KEY (job_id, position)
);`

// Open connects a pool using cfg.
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the outreach tables when they are missing.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
