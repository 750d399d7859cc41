package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/procurement-watch/internal/types"
)

// Snapshot is a stored JSON document with its format version
type Snapshot struct {
	Name    string
	Version int
	Data    []byte
	SavedAt time.Time
}

// GetSnapshot loads the snapshot stored under name
func (db *DB) GetSnapshot(ctx context.Context, name string) (*Snapshot, error) {
	snap := Snapshot{Name: name}
	err := db.pool.QueryRow(ctx,
		`SELECT version, data, saved_at FROM store_snapshots WHERE name = $1`,
		name,
	).Scan(&snap.Version, &snap.Data, &snap.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to get snapshot %s: %w", name, err)
	}
	return &snap, nil
}

// SaveSnapshot replaces the snapshot under name and archives any runs it
// carries that are not archived yet, in one transaction.
func (db *DB) SaveSnapshot(ctx context.Context, name string, version int, data []byte, runs []types.RunRecord) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO store_snapshots (name, version, data, saved_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (name) DO UPDATE SET version = $2, data = $3, saved_at = NOW()`,
		name, version, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", name, err)
	}

	for _, run := range runs {
		if err := archiveRun(ctx, tx, run); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot %s: %w", name, err)
	}
	return nil
}

// DeleteSnapshot removes the snapshot under name. The run archive is kept.
func (db *DB) DeleteSnapshot(ctx context.Context, name string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM store_snapshots WHERE name = $1`, name); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
	}
	return nil
}
