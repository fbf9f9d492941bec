// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/testdb"
)

func TestSymlinkStoreUpsertTracksTransitions(t *testing.T) {
	ctx := context.Background()
	store := models.NewSymlinkStore(testdb.Open(t))

	require.NoError(t, store.Upsert(ctx, "/opt/media/tv/e01.mkv", "/mnt/debrid/e01.mkv", models.SymlinkStatusOK))
	require.NoError(t, store.Upsert(ctx, "/opt/media/tv/e01.mkv", "/mnt/debrid/e01.mkv", models.SymlinkStatusBroken))

	broken, err := store.ListBroken(ctx)
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, "/opt/media/tv/e01.mkv", broken[0].Path)
	assert.Equal(t, models.SymlinkStatusBroken, broken[0].Status)
	assert.Equal(t, models.SymlinkStatusOK, broken[0].LastStatus)
}

func TestSymlinkStoreCounts(t *testing.T) {
	ctx := context.Background()
	store := models.NewSymlinkStore(testdb.Open(t))

	require.NoError(t, store.Upsert(ctx, "/a.mkv", "/mnt/a.mkv", models.SymlinkStatusOK))
	require.NoError(t, store.Upsert(ctx, "/b.mkv", "/mnt/b.mkv", models.SymlinkStatusBroken))
	require.NoError(t, store.Upsert(ctx, "/c.mkv", "/mnt/c.mkv", models.SymlinkStatusBroken))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.SymlinkStatusOK])
	assert.Equal(t, 2, counts[models.SymlinkStatusBroken])
}

func TestSymlinkStorePrune(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	store := models.NewSymlinkStore(db)

	require.NoError(t, store.Upsert(ctx, "/gone.mkv", "/mnt/gone.mkv", models.SymlinkStatusOK))
	require.NoError(t, store.Upsert(ctx, "/kept.mkv", "/mnt/kept.mkv", models.SymlinkStatusOK))

	stale := time.Now().Add(-time.Hour).UTC().Format(time.DateTime)
	_, err := db.ExecContext(ctx, "UPDATE symlinks SET last_seen = ? WHERE path = ?", stale, "/gone.mkv")
	require.NoError(t, err)

	pruned, err := store.PruneNotSeenSince(ctx, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.SymlinkStatusOK])
}
