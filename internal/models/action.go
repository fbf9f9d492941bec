// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Bollo123view/refresherr/internal/dbinterface"
)

// Action kinds. Each kind carries its own payload shape.
const (
	ActionKindHotswap      = "hotswap"
	ActionKindRemoteSearch = "remote_search"
)

// Action statuses. Transitions are pending -> sent and sent -> ok/failed;
// ok and failed are terminal. Anything else is rejected with
// ErrInvalidTransition.
const (
	ActionStatusPending = "pending"
	ActionStatusSent    = "sent"
	ActionStatusOK      = "ok"
	ActionStatusFailed  = "failed"
)

// ErrInvalidTransition is returned when an action status update would skip
// or reverse the pending -> sent -> ok/failed lifecycle.
var ErrInvalidTransition = errors.New("invalid action status transition")

// RemoteSearchPayload is the payload of a remote_search action: the search
// the relay should run on the broken item's behalf.
type RemoteSearchPayload struct {
	Target string `json:"target"`
	Scope  string `json:"scope"`
	Term   string `json:"term"`
	URL    string `json:"url"`
}

// HotswapPayload is the payload of a hotswap action: the replacement file
// the link was (or should be) repointed to.
type HotswapPayload struct {
	SourcePath string `json:"sourcePath"`
}

// Action is a queued repair request. The queue is append-only: actions are
// resolved, never deleted.
type Action struct {
	ID          int64           `json:"id"`
	RelatedPath string          `json:"relatedPath"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	ResolvedAt  *time.Time      `json:"resolvedAt,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
}

// RemoteSearchPayload decodes the action's payload as a remote search.
func (a *Action) RemoteSearchPayload() (*RemoteSearchPayload, error) {
	if a.Kind != ActionKindRemoteSearch {
		return nil, fmt.Errorf("action %d has kind %q, not %q", a.ID, a.Kind, ActionKindRemoteSearch)
	}
	var p RemoteSearchPayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode action %d payload: %w", a.ID, err)
	}
	return &p, nil
}

// ActionStore handles database operations for the action queue.
type ActionStore struct {
	db dbinterface.Querier
}

// NewActionStore creates a new ActionStore.
func NewActionStore(db dbinterface.Querier) *ActionStore {
	return &ActionStore{db: db}
}

// Enqueue inserts a pending action unless one with the same related path is
// already pending. The insert and the existence check are a single statement,
// so concurrent enqueues for the same path converge on one pending row.
// Returns the action and whether this call created it.
func (s *ActionStore) Enqueue(ctx context.Context, relatedPath, kind string, payload any) (*Action, bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("encode action payload: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO actions (related_path, kind, payload, status)
		SELECT ?, ?, ?, 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM actions WHERE related_path = ? AND status = 'pending'
		)
	`, relatedPath, kind, string(body), relatedPath)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue action: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("get rows affected: %w", err)
	}

	if rows == 0 {
		existing, err := s.getPendingByRelatedPath(ctx, relatedPath)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("get last insert id: %w", err)
	}

	action, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return action, true, nil
}

func (s *ActionStore) getPendingByRelatedPath(ctx context.Context, relatedPath string) (*Action, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, related_path, kind, payload, status, created_at, resolved_at, last_error
		FROM actions
		WHERE related_path = ? AND status = 'pending'
		ORDER BY created_at ASC
		LIMIT 1
	`, relatedPath)
	return scanAction(row)
}

// Get returns the action with the given id.
func (s *ActionStore) Get(ctx context.Context, id int64) (*Action, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, related_path, kind, payload, status, created_at, resolved_at, last_error
		FROM actions
		WHERE id = ?
	`, id)
	return scanAction(row)
}

// ListPending returns pending actions oldest first, capped at limit.
func (s *ActionStore) ListPending(ctx context.Context, limit int) ([]*Action, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx, `
		SELECT id, related_path, kind, payload, status, created_at, resolved_at, last_error
		FROM actions
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, limit)
}

// List returns recent actions newest first, optionally filtered by status.
func (s *ActionStore) List(ctx context.Context, status string, limit int) ([]*Action, error) {
	if limit <= 0 {
		limit = 50
	}
	if status != "" {
		return s.list(ctx, `
			SELECT id, related_path, kind, payload, status, created_at, resolved_at, last_error
			FROM actions
			WHERE status = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, status, limit)
	}
	return s.list(ctx, `
		SELECT id, related_path, kind, payload, status, created_at, resolved_at, last_error
		FROM actions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
}

func (s *ActionStore) list(ctx context.Context, query string, args ...any) ([]*Action, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		action, err := scanActionRows(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

// MarkSent transitions a pending action to sent.
func (s *ActionStore) MarkSent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE actions
		SET status = 'sent'
		WHERE id = ? AND status = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("mark action %d sent: %w", id, err)
	}
	return checkTransition(res)
}

// Resolve transitions a sent action to ok or failed, stamping resolved_at
// and recording the error if any.
func (s *ActionStore) Resolve(ctx context.Context, id int64, ok bool, lastError string) error {
	status := ActionStatusOK
	if !ok {
		status = ActionStatusFailed
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE actions
		SET status = ?, resolved_at = CURRENT_TIMESTAMP, last_error = NULLIF(?, '')
		WHERE id = ? AND status = 'sent'
	`, status, lastError, id)
	if err != nil {
		return fmt.Errorf("resolve action %d: %w", id, err)
	}
	return checkTransition(res)
}

func checkTransition(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Counts returns the number of actions per status.
func (s *ActionStore) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM actions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count actions: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		ActionStatusPending: 0,
		ActionStatusSent:    0,
		ActionStatusOK:      0,
		ActionStatusFailed:  0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row *sql.Row) (*Action, error) {
	action, err := scanActionRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return action, err
}

func scanActionRows(row rowScanner) (*Action, error) {
	var a Action
	var payload string
	var resolvedAt sql.NullTime
	var lastError sql.NullString
	if err := row.Scan(&a.ID, &a.RelatedPath, &a.Kind, &payload, &a.Status, &a.CreatedAt, &resolvedAt, &lastError); err != nil {
		return nil, err
	}
	a.Payload = json.RawMessage(payload)
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	if lastError.Valid {
		a.LastError = lastError.String
	}
	return &a, nil
}
