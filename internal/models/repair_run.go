// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Bollo123view/refresherr/internal/dbinterface"
)

// Repair run phases.
const (
	RunPhaseHotswap = "hotswap"
	RunPhaseSearch  = "search"
	RunPhaseFull    = "full"
)

// Repair run triggers.
const (
	RunTriggerManual = "manual"
	RunTriggerAuto   = "auto"
	RunTriggerAPI    = "api"
)

// Repair run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ErrRunAlreadyActive is returned when attempting to create a run while one
// is still running.
var ErrRunAlreadyActive = errors.New("a repair run is already active")

// RepairRun is one orchestrated pass over the broken symlinks.
type RepairRun struct {
	ID           int64      `json:"id"`
	Phase        string     `json:"phase"`
	TriggeredBy  string     `json:"triggeredBy"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	BrokenFound  int        `json:"brokenFound"`
	Repaired     int        `json:"repaired"`
	Skipped      int        `json:"skipped"`
	Failed       int        `json:"failed"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// RunCounts carries the per-run outcome counters.
type RunCounts struct {
	BrokenFound int `json:"brokenFound"`
	Repaired    int `json:"repaired"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

// RepairRunStore handles database operations for repair runs.
type RepairRunStore struct {
	db dbinterface.Querier
}

// NewRepairRunStore creates a new RepairRunStore.
func NewRepairRunStore(db dbinterface.Querier) *RepairRunStore {
	return &RepairRunStore{db: db}
}

// CreateRunIfNoActive atomically checks for a running repair run and creates
// a new one if none exists. Returns ErrRunAlreadyActive otherwise.
func (s *RepairRunStore) CreateRunIfNoActive(ctx context.Context, phase, triggeredBy string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO repair_runs (phase, triggered_by, status)
		SELECT ?, ?, 'running'
		WHERE NOT EXISTS (
			SELECT 1 FROM repair_runs WHERE status = 'running'
		)
	`, phase, triggeredBy)
	if err != nil {
		return 0, fmt.Errorf("insert repair run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return 0, ErrRunAlreadyActive
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// UpdateRunCompleted marks a run completed with its final counters.
func (s *RepairRunStore) UpdateRunCompleted(ctx context.Context, id int64, counts RunCounts) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE repair_runs
		SET status = 'completed', completed_at = CURRENT_TIMESTAMP,
		    broken_found = ?, repaired = ?, skipped = ?, failed = ?
		WHERE id = ?
	`, counts.BrokenFound, counts.Repaired, counts.Skipped, counts.Failed, id)
	if err != nil {
		return fmt.Errorf("complete repair run %d: %w", id, err)
	}
	return nil
}

// UpdateRunFailed marks a run failed, keeping whatever counters were reached.
func (s *RepairRunStore) UpdateRunFailed(ctx context.Context, id int64, counts RunCounts, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE repair_runs
		SET status = 'failed', completed_at = CURRENT_TIMESTAMP,
		    broken_found = ?, repaired = ?, skipped = ?, failed = ?,
		    error_message = ?
		WHERE id = ?
	`, counts.BrokenFound, counts.Repaired, counts.Skipped, counts.Failed, errorMessage, id)
	if err != nil {
		return fmt.Errorf("fail repair run %d: %w", id, err)
	}
	return nil
}

// GetRun returns the run with the given id.
func (s *RepairRunStore) GetRun(ctx context.Context, id int64) (*RepairRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, phase, triggered_by, status, started_at, completed_at,
		       broken_found, repaired, skipped, failed, error_message
		FROM repair_runs
		WHERE id = ?
	`, id)
	return scanRepairRun(row)
}

// ActiveRun returns the currently running repair run, or nil when idle.
func (s *RepairRunStore) ActiveRun(ctx context.Context) (*RepairRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, phase, triggered_by, status, started_at, completed_at,
		       broken_found, repaired, skipped, failed, error_message
		FROM repair_runs
		WHERE status = 'running'
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`)
	run, err := scanRepairRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// ListRuns returns recent runs newest first.
func (s *RepairRunStore) ListRuns(ctx context.Context, limit int) ([]*RepairRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, phase, triggered_by, status, started_at, completed_at,
		       broken_found, repaired, skipped, failed, error_message
		FROM repair_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list repair runs: %w", err)
	}
	defer rows.Close()

	var runs []*RepairRun
	for rows.Next() {
		run, err := scanRepairRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkStuckRunsFailed fails runs that have been running longer than threshold.
// Called at startup so a crash mid-run never blocks future runs.
func (s *RepairRunStore) MarkStuckRunsFailed(ctx context.Context, threshold time.Duration) error {
	// started_at is set by SQLite via CURRENT_TIMESTAMP, a UTC "YYYY-MM-DD
	// HH:MM:SS" string. Compare against the same format so the lexicographic
	// comparison is correct regardless of driver time formatting.
	cutoff := time.Now().Add(-threshold).UTC().Format(time.DateTime)

	_, err := s.db.ExecContext(ctx, `
		UPDATE repair_runs
		SET status = 'failed', error_message = 'Marked failed after restart', completed_at = CURRENT_TIMESTAMP
		WHERE started_at < ? AND status = 'running'
	`, cutoff)
	if err != nil {
		return fmt.Errorf("mark stuck runs failed: %w", err)
	}
	return nil
}

func scanRepairRun(row *sql.Row) (*RepairRun, error) {
	return scanRepairRunRows(row)
}

func scanRepairRunRows(row rowScanner) (*RepairRun, error) {
	var r RepairRun
	var completedAt sql.NullTime
	var errorMessage sql.NullString
	if err := row.Scan(&r.ID, &r.Phase, &r.TriggeredBy, &r.Status, &r.StartedAt, &completedAt,
		&r.BrokenFound, &r.Repaired, &r.Skipped, &r.Failed, &errorMessage); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	if errorMessage.Valid {
		r.ErrorMessage = errorMessage.String
	}
	return &r, nil
}
