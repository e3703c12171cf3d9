// Package sqlite provides venue and job repositories on an embedded SQLite
// database, the default for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS places (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	place_id       TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL DEFAULT '',
	website        TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	locale         TEXT NOT NULL DEFAULT '',
	country        TEXT NOT NULL DEFAULT '',
	needs_review   INTEGER NOT NULL DEFAULT 1,
	ignore         INTEGER NOT NULL DEFAULT 0,
	read_confirmed INTEGER NOT NULL DEFAULT 0,
	contacted_at   INTEGER
);
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	country     TEXT NOT NULL,
	city        TEXT NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	finished_at INTEGER
);
CREATE TABLE IF NOT EXISTS job_places (
	job_id   TEXT NOT NULL REFERENCES jobs (id),
	position INTEGER NOT NULL,
	place_id TEXT NOT NULL,
	PRIMARY KEY (job_id, position)
);`

// Open opens (and migrates) the database at dsn. In-memory databases are
// pinned to a single connection so every query sees the same data.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
