// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package testdb provides migrated throwaway databases for store tests.
package testdb

import (
	"path/filepath"
	"testing"

	"github.com/Bollo123view/refresherr/internal/database"
)

// Open returns a fully migrated database backed by a file in the test's
// temp dir. It is closed automatically when the test finishes.
func Open(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "refresherr.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
