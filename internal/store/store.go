// package store persists run history to the local SQLite database.
//
// History is a convenience for `idmigrate runs list`; it is best-effort and
// must never fail an otherwise-successful run. The failure log, not this
// table, is the authoritative record of unmigrated records.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run is one import run's summary row.
type Run struct {
	ID            string
	Entity        string
	SourceFile    string
	Offset        int
	Migrated      int
	AlreadyExists int
	Failed        int
	LogPath       string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Store provides access to the runs table.
type Store struct {
	db *sql.DB
}

// New creates a Store with the given database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveRun inserts a run summary row.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (
			id, entity, source_file, record_offset, migrated,
			already_exists, failed, log_path, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Entity,
		run.SourceFile,
		run.Offset,
		run.Migrated,
		run.AlreadyExists,
		run.Failed,
		run.LogPath,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, entity, source_file, record_offset, migrated,
		       already_exists, failed, log_path, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID,
			&run.Entity,
			&run.SourceFile,
			&run.Offset,
			&run.Migrated,
			&run.AlreadyExists,
			&run.Failed,
			&run.LogPath,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
