// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/testdb"
)

func TestHotswapItemStoreReplaceAll(t *testing.T) {
	ctx := context.Background()
	store := models.NewHotswapItemStore(testdb.Open(t))

	require.NoError(t, store.ReplaceAll(ctx, []*models.HotswapItem{
		{Path: "/mnt/cinesync/tv/Show/S01/e01.1080p.mkv", NormTitle: "show", Season: 1, Episode: 1, ResolutionRank: 30, TargetOK: true},
		{Path: "/mnt/cinesync/tv/Show/S01/e01.2160p.mkv", NormTitle: "show", Season: 1, Episode: 1, ResolutionRank: 40, TargetOK: true},
		{Path: "/mnt/cinesync/tv/Show/S01/e01.720p.mkv", NormTitle: "show", Season: 1, Episode: 1, ResolutionRank: 20, TargetOK: false},
	}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Rebuild replaces, never accumulates.
	require.NoError(t, store.ReplaceAll(ctx, []*models.HotswapItem{
		{Path: "/mnt/cinesync/tv/Other/S02/e05.mkv", NormTitle: "other", Season: 2, Episode: 5, ResolutionRank: 30, TargetOK: true},
	}))

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHotswapItemStoreFindOrdering(t *testing.T) {
	ctx := context.Background()
	store := models.NewHotswapItemStore(testdb.Open(t))

	require.NoError(t, store.ReplaceAll(ctx, []*models.HotswapItem{
		{Path: "/pool/show-e01-720p.mkv", TMDBID: 42, NormTitle: "show", Season: 1, Episode: 1, ResolutionRank: 20, TargetOK: true},
		{Path: "/pool/show-e01-2160p.mkv", TMDBID: 42, NormTitle: "show", Season: 1, Episode: 1, ResolutionRank: 40, TargetOK: true},
		{Path: "/pool/show-e01-dead.mkv", TMDBID: 42, NormTitle: "show", Season: 1, Episode: 1, ResolutionRank: 40, TargetOK: false},
		{Path: "/pool/show-e02.mkv", TMDBID: 42, NormTitle: "show", Season: 1, Episode: 2, ResolutionRank: 30, TargetOK: true},
	}))

	byTMDB, err := store.FindByTMDB(ctx, 42, 1, 1)
	require.NoError(t, err)
	require.Len(t, byTMDB, 2)
	// Best resolution first, broken donors excluded.
	assert.Equal(t, "/pool/show-e01-2160p.mkv", byTMDB[0].Path)
	assert.Equal(t, "/pool/show-e01-720p.mkv", byTMDB[1].Path)

	byTitle, err := store.FindByTitle(ctx, "show", 1, 2)
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "/pool/show-e02.mkv", byTitle[0].Path)

	none, err := store.FindByTitle(ctx, "missing", 1, 1)
	require.NoError(t, err)
	assert.Empty(t, none)
}
