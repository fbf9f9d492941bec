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

// HotswapItem is one indexed secondary-library entry, ready to be matched
// against a broken symlink.
type HotswapItem struct {
	ID             int64     `json:"id"`
	Path           string    `json:"path"`
	TMDBID         int64     `json:"tmdbId"`
	NormTitle      string    `json:"normTitle"`
	Season         int       `json:"season"`
	Episode        int       `json:"episode"`
	ResolutionRank int       `json:"resolutionRank"`
	TargetOK       bool      `json:"targetOk"`
	IndexedAt      time.Time `json:"indexedAt"`
}

// HotswapItemStore handles the secondary-library index.
type HotswapItemStore struct {
	db dbinterface.TxBeginner
}

// NewHotswapItemStore creates a new HotswapItemStore.
func NewHotswapItemStore(db dbinterface.TxBeginner) *HotswapItemStore {
	return &HotswapItemStore{db: db}
}

// ReplaceAll swaps the whole index in one transaction so readers never see a
// half-built donor pool.
func (s *HotswapItemStore) ReplaceAll(ctx context.Context, items []*HotswapItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM hotswap_items`); err != nil {
		return fmt.Errorf("clear hotswap index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hotswap_items (path, tmdb_id, norm_title, season, episode, resolution_rank, target_ok)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare index insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.Path, item.TMDBID, item.NormTitle,
			item.Season, item.Episode, item.ResolutionRank, item.TargetOK); err != nil {
			return fmt.Errorf("insert hotswap item %s: %w", item.Path, err)
		}
	}

	return tx.Commit()
}

// FindByTMDB returns healthy candidates for a TMDB id and episode numbering,
// best resolution first.
func (s *HotswapItemStore) FindByTMDB(ctx context.Context, tmdbID int64, season, episode int) ([]*HotswapItem, error) {
	return s.find(ctx, `
		SELECT id, path, tmdb_id, norm_title, season, episode, resolution_rank, target_ok, indexed_at
		FROM hotswap_items
		WHERE tmdb_id = ? AND season = ? AND episode = ? AND target_ok = 1
		ORDER BY resolution_rank DESC, path ASC
	`, tmdbID, season, episode)
}

// FindByTitle returns healthy candidates by normalized title and episode
// numbering, best resolution first.
func (s *HotswapItemStore) FindByTitle(ctx context.Context, normTitle string, season, episode int) ([]*HotswapItem, error) {
	return s.find(ctx, `
		SELECT id, path, tmdb_id, norm_title, season, episode, resolution_rank, target_ok, indexed_at
		FROM hotswap_items
		WHERE norm_title = ? AND season = ? AND episode = ? AND target_ok = 1
		ORDER BY resolution_rank DESC, path ASC
	`, normTitle, season, episode)
}

// Count returns the number of indexed items.
func (s *HotswapItemStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hotswap_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count hotswap items: %w", err)
	}
	return n, nil
}

func (s *HotswapItemStore) find(ctx context.Context, query string, args ...any) ([]*HotswapItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query hotswap items: %w", err)
	}
	defer rows.Close()

	return scanHotswapItems(rows)
}

func scanHotswapItems(rows *sql.Rows) ([]*HotswapItem, error) {
	var items []*HotswapItem
	for rows.Next() {
		var item HotswapItem
		if err := rows.Scan(&item.ID, &item.Path, &item.TMDBID, &item.NormTitle,
			&item.Season, &item.Episode, &item.ResolutionRank, &item.TargetOK, &item.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan hotswap item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
