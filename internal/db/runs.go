package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/procurement-watch/internal/types"
)

// DefaultRunLimit caps ListRuns when no limit is given
const DefaultRunLimit = 50

// archiveRun inserts a run record unless it is already archived
func archiveRun(ctx context.Context, tx pgx.Tx, run types.RunRecord) error {
	outcomes, err := json.Marshal(run.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal outcomes: %w", err)
	}

	var abortReason *string
	if run.AbortReason != "" {
		abortReason = &run.AbortReason
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO pull_runs (id, started_at, finished_at, total_added, ok_count, err_count,
		                        aborted, abort_reason, outcomes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		run.ID, run.StartedAt, run.FinishedAt, run.TotalAdded, run.OKCount, run.ErrCount,
		run.Aborted, abortReason, outcomes,
	)
	if err != nil {
		return fmt.Errorf("failed to archive run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns retrieves archived runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, started_at, finished_at, total_added, ok_count, err_count,
		        aborted, COALESCE(abort_reason, ''), outcomes
		 FROM pull_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var run types.RunRecord
		var outcomes []byte
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.TotalAdded, &run.OKCount,
			&run.ErrCount, &run.Aborted, &run.AbortReason, &outcomes); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if len(outcomes) > 0 {
			if err := json.Unmarshal(outcomes, &run.Outcomes); err != nil {
				return nil, fmt.Errorf("failed to decode outcomes of run %s: %w", run.ID, err)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// CountRuns returns the number of archived runs
func (db *DB) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pull_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
