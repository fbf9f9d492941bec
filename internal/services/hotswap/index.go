// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hotswap

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/mediaid"
	"github.com/Bollo123view/refresherr/internal/models"
)

var videoExtensions = map[string]struct{}{
	".mkv":  {},
	".mp4":  {},
	".avi":  {},
	".m4v":  {},
	".ts":   {},
	".wmv":  {},
	".mov":  {},
	".webm": {},
}

// RebuildIndex walks the secondary library and replaces the donor index.
// Every video file and symlink is parsed into an identity; symlinks whose
// target no longer resolves are indexed with target_ok = 0 so they are never
// offered as donors.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	root := s.snapshot().secondaryRoot
	if root == "" {
		return 0, nil
	}

	var items []*models.HotswapItem

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		if _, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		targetOK := true
		if d.Type()&fs.ModeSymlink != 0 {
			if _, statErr := os.Stat(path); statErr != nil {
				targetOK = false
			}
		}

		id := mediaid.ParsePath(path)
		if id.NormTitle == "" && id.TMDBID == 0 {
			return nil // Unidentifiable, useless as a donor
		}

		items = append(items, &models.HotswapItem{
			Path:           path,
			TMDBID:         id.TMDBID,
			NormTitle:      id.NormTitle,
			Season:         id.Season,
			Episode:        id.Episode,
			ResolutionRank: mediaid.ResolutionRank(id.Resolution),
			TargetOK:       targetOK,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.items.ReplaceAll(ctx, items); err != nil {
		return 0, err
	}

	log.Info().Int("items", len(items)).Str("root", root).Msg("Rebuilt hotswap donor index")
	return len(items), nil
}
