package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/procurement-watch/internal/db"
	"github.com/jonathan/procurement-watch/internal/store"
)

// DefaultSnapshotName names the snapshot row used by the postgres backend
const DefaultSnapshotName = "default"

// PostgresStore keeps the snapshot in PostgreSQL and archives every run it
// sees into the unbounded pull_runs table.
type PostgresStore struct {
	db   *db.DB
	name string
}

// OpenPostgres connects and ensures the tables exist
func OpenPostgres(ctx context.Context, databaseURL, name string) (*PostgresStore, error) {
	conn, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := conn.EnsureTables(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if name == "" {
		name = DefaultSnapshotName
	}
	return &PostgresStore{db: conn, name: name}, nil
}

// Load reads the named snapshot
func (p *PostgresStore) Load(ctx context.Context) (*store.Store, error) {
	snap, err := p.db.GetSnapshot(ctx, p.name)
	if err != nil {
		if errors.Is(err, db.ErrNoSnapshot) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode(p.Location(), snap.Data)
}

// Save writes the snapshot and archives its runs
func (p *PostgresStore) Save(ctx context.Context, s *store.Store) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	return p.db.SaveSnapshot(ctx, p.name, s.Version, data, s.Runs)
}

// Clear deletes the snapshot row. Archived runs are kept.
func (p *PostgresStore) Clear(ctx context.Context) error {
	return p.db.DeleteSnapshot(ctx, p.name)
}

// DB exposes the connection for run archive queries
func (p *PostgresStore) DB() *db.DB {
	return p.db
}

// Location names the snapshot row
func (p *PostgresStore) Location() string {
	return "postgres:" + p.name
}

// Close closes the pool
func (p *PostgresStore) Close() error {
	p.db.Close()
	return nil
}
