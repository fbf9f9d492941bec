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

// OrchestratorState is the single-row persisted orchestrator toggle.
type OrchestratorState struct {
	Enabled     bool       `json:"enabled"`
	LastAutoRun *time.Time `json:"lastAutoRun,omitempty"`
}

// OrchestratorStateStore handles the orchestrator_state singleton row.
type OrchestratorStateStore struct {
	db dbinterface.Querier
}

// NewOrchestratorStateStore creates a new OrchestratorStateStore.
func NewOrchestratorStateStore(db dbinterface.Querier) *OrchestratorStateStore {
	return &OrchestratorStateStore{db: db}
}

// Get returns the current orchestrator state.
func (s *OrchestratorStateStore) Get(ctx context.Context) (*OrchestratorState, error) {
	var state OrchestratorState
	var lastAutoRun sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT enabled, last_auto_run FROM orchestrator_state WHERE id = 1
	`).Scan(&state.Enabled, &lastAutoRun)
	if err != nil {
		return nil, fmt.Errorf("get orchestrator state: %w", err)
	}
	if lastAutoRun.Valid {
		state.LastAutoRun = &lastAutoRun.Time
	}
	return &state, nil
}

// SetEnabled toggles automatic repair runs.
func (s *OrchestratorStateStore) SetEnabled(ctx context.Context, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orchestrator_state SET enabled = ? WHERE id = 1
	`, enabled)
	if err != nil {
		return fmt.Errorf("set orchestrator enabled: %w", err)
	}
	return nil
}

// TouchLastAutoRun records the start of an automatic run.
func (s *OrchestratorStateStore) TouchLastAutoRun(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orchestrator_state SET last_auto_run = CURRENT_TIMESTAMP WHERE id = 1
	`)
	if err != nil {
		return fmt.Errorf("touch last auto run: %w", err)
	}
	return nil
}
