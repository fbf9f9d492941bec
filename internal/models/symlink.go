// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Bollo123view/refresherr/internal/dbinterface"
)

// Symlink statuses.
const (
	SymlinkStatusOK     = "ok"
	SymlinkStatusBroken = "broken"
)

// Symlink is one tracked library symlink and its last observed state.
type Symlink struct {
	Path       string    `json:"path"`
	Target     string    `json:"target"`
	Status     string    `json:"status"`
	LastStatus string    `json:"lastStatus,omitempty"`
	FirstSeen  time.Time `json:"firstSeen"`
	LastSeen   time.Time `json:"lastSeen"`
}

// SymlinkStore handles database operations for the symlink inventory.
type SymlinkStore struct {
	db dbinterface.Querier
}

// NewSymlinkStore creates a new SymlinkStore.
func NewSymlinkStore(db dbinterface.Querier) *SymlinkStore {
	return &SymlinkStore{db: db}
}

// Upsert records the current state of a symlink, preserving the previous
// status in last_status so transitions are observable.
func (s *SymlinkStore) Upsert(ctx context.Context, path, target, status string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO symlinks (path, target, status, last_seen)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (path) DO UPDATE SET
			last_status = symlinks.status,
			target = excluded.target,
			status = excluded.status,
			last_seen = CURRENT_TIMESTAMP
	`, path, target, status)
	if err != nil {
		return fmt.Errorf("upsert symlink %s: %w", path, err)
	}
	return nil
}

// ListBroken returns all symlinks currently marked broken, ordered by path
// so repair passes are deterministic.
func (s *SymlinkStore) ListBroken(ctx context.Context) ([]*Symlink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, target, status, last_status, first_seen, last_seen
		FROM symlinks
		WHERE status = 'broken'
		ORDER BY path ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list broken symlinks: %w", err)
	}
	defer rows.Close()

	return scanSymlinks(rows)
}

// Counts returns the number of symlinks per status.
func (s *SymlinkStore) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM symlinks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count symlinks: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		SymlinkStatusOK:     0,
		SymlinkStatusBroken: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan symlink count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// PruneNotSeenSince removes entries for links that disappeared from the
// library, identified by a last_seen older than cutoff.
func (s *SymlinkStore) PruneNotSeenSince(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM symlinks WHERE last_seen < ?
	`, cutoff.UTC().Format(time.DateTime))
	if err != nil {
		return 0, fmt.Errorf("prune symlinks: %w", err)
	}
	return res.RowsAffected()
}

func scanSymlinks(rows *sql.Rows) ([]*Symlink, error) {
	var links []*Symlink
	for rows.Next() {
		var l Symlink
		var lastStatus sql.NullString
		if err := rows.Scan(&l.Path, &l.Target, &l.Status, &lastStatus, &l.FirstSeen, &l.LastSeen); err != nil {
			return nil, fmt.Errorf("scan symlink: %w", err)
		}
		l.LastStatus = lastStatus.String
		links = append(links, &l)
	}
	return links, rows.Err()
}
