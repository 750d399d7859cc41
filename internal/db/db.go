// Package db provides PostgreSQL storage for store snapshots and the
// unbounded archive of pull runs.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoSnapshot is returned when no snapshot has been saved under a name
var ErrNoSnapshot = errors.New("snapshot not found")

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS store_snapshots (
  name text PRIMARY KEY,
  version int NOT NULL,
  data jsonb NOT NULL,
  saved_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pull_runs (
  id uuid PRIMARY KEY,
  started_at timestamptz NOT NULL,
  finished_at timestamptz NOT NULL,
  total_added int NOT NULL DEFAULT 0,
  ok_count int NOT NULL DEFAULT 0,
  err_count int NOT NULL DEFAULT 0,
  aborted boolean NOT NULL DEFAULT false,
  abort_reason text,
  outcomes jsonb NOT NULL DEFAULT '[]'::jsonb,
  archived_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS pull_runs_started_idx ON pull_runs (started_at DESC);
`

// EnsureTables creates the snapshot and run archive tables if missing
func (db *DB) EnsureTables(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}
