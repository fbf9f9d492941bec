// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package scanner walks the library roots, records every symlink and its
// health in the inventory, and prunes entries for links that disappeared.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/pathmap"
)

// ErrMountNotReady is returned when the configured mount check file is
// missing, meaning every link would look broken for the wrong reason.
var ErrMountNotReady = errors.New("mount check file missing, refusing to scan")

// Result summarizes one scan pass.
type Result struct {
	Total   int   `json:"total"`
	Broken  int   `json:"broken"`
	Pruned  int64 `json:"pruned"`
	Elapsed time.Duration
}

// Service runs library scans and keeps the symlink inventory current.
type Service struct {
	store *models.SymlinkStore

	mu     sync.RWMutex
	mapper *pathmap.Mapper
}

// NewService creates a scanner service.
func NewService(store *models.SymlinkStore, mapper *pathmap.Mapper) *Service {
	return &Service{store: store, mapper: mapper}
}

// SetMapper swaps the path mapper after a config reload. A scan already in
// flight keeps the mapper it started with.
func (s *Service) SetMapper(mapper *pathmap.Mapper) {
	s.mu.Lock()
	s.mapper = mapper
	s.mu.Unlock()
}

func (s *Service) currentMapper() *pathmap.Mapper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapper
}

// CheckMount verifies the mount sentinel file when one is configured.
func (s *Service) CheckMount(cfg *domain.Config) error {
	if cfg.MountCheckFile == "" {
		return nil
	}
	if _, err := os.Stat(cfg.MountCheckFile); err != nil {
		return fmt.Errorf("%w: %s", ErrMountNotReady, cfg.MountCheckFile)
	}
	return nil
}

// Scan walks all configured library roots and upserts every symlink found.
// Entries not seen by this pass are pruned afterwards. Roots are walked
// concurrently; the inventory writes are serialized by SQLite.
func (s *Service) Scan(ctx context.Context, cfg *domain.Config) (*Result, error) {
	if err := s.CheckMount(cfg); err != nil {
		return nil, err
	}

	ignorePaths, err := NormalizeIgnorePaths(cfg.IgnorePaths)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{}
	mapper := s.currentMapper()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, root := range cfg.LibraryRoots {
		g.Go(func() error {
			return walkLibraryRoot(gctx, root, ignorePaths, func(v symlinkVisit) error {
				status := models.SymlinkStatusOK
				if v.Broken {
					status = models.SymlinkStatusBroken
				}

				target := v.Target
				if mapper != nil {
					target = mapper.ToLogical(target)
				}

				if err := s.store.Upsert(gctx, v.Path, target, status); err != nil {
					return err
				}

				mu.Lock()
				result.Total++
				if v.Broken {
					result.Broken++
				}
				mu.Unlock()
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pruned, err := s.store.PruneNotSeenSince(ctx, start)
	if err != nil {
		return nil, err
	}
	result.Pruned = pruned
	result.Elapsed = time.Since(start)

	log.Info().
		Int("total", result.Total).
		Int("broken", result.Broken).
		Int64("pruned", result.Pruned).
		Dur("elapsed", result.Elapsed).
		Msg("Library scan finished")

	return result, nil
}

// ListBroken returns the currently broken symlinks from the inventory.
func (s *Service) ListBroken(ctx context.Context) ([]*models.Symlink, error) {
	return s.store.ListBroken(ctx)
}
