// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hotswap repairs broken symlinks by pointing them at a healthy copy
// from the secondary library, preferring the best available resolution.
package hotswap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/mediaid"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/pkg/pathcmp"
)

// Outcome of one hotswap attempt.
type Outcome string

const (
	// OutcomeRepaired means the symlink now points at a healthy donor copy.
	OutcomeRepaired Outcome = "repaired"
	// OutcomeNotFound means no donor matched this identity.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeUnsafe means donors existed but none resolved inside the
	// allow-listed prefixes; the broken link is left untouched.
	OutcomeUnsafe Outcome = "unsafe"
)

// settings is one immutable snapshot of the config-derived state, replaced
// wholesale on reload so concurrent attempts never see a half-applied config.
type settings struct {
	secondaryRoot string
	allowPrefixes []string
}

// Service matches broken symlinks against the donor index and performs the
// swap.
type Service struct {
	items   *models.HotswapItemStore
	actions *models.ActionStore

	mu       sync.RWMutex
	settings *settings
}

// NewService creates a hotswap service from config.
func NewService(items *models.HotswapItemStore, actions *models.ActionStore, cfg *domain.Config) *Service {
	s := &Service{items: items, actions: actions}
	s.ApplyConfig(cfg)
	return s
}

// ApplyConfig publishes a new settings snapshot after a config reload.
func (s *Service) ApplyConfig(cfg *domain.Config) {
	next := &settings{
		secondaryRoot: cfg.SecondaryRoot,
		allowPrefixes: normalizePrefixes(cfg.HotswapAllowPrefixes),
	}

	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
}

func (s *Service) snapshot() *settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func normalizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if n := pathcmp.NormalizePath(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Enabled reports whether hotswap can run at all. An empty allow list
// disables it: with no safe destination there is nothing we may link to.
func (s *Service) Enabled() bool {
	return s.snapshot().enabled()
}

// Attempt tries to repair one broken symlink from the donor pool. The link
// on disk is only ever replaced, never deleted: a failed attempt leaves the
// broken link exactly as it was.
func (s *Service) Attempt(ctx context.Context, link *models.Symlink) (Outcome, error) {
	conf := s.snapshot()
	if !conf.enabled() {
		return OutcomeNotFound, nil
	}

	id := mediaid.ParsePath(link.Path)

	candidates, err := s.findCandidates(ctx, id)
	if err != nil {
		return OutcomeNotFound, err
	}
	if len(candidates) == 0 {
		return OutcomeNotFound, nil
	}

	sawUnsafe := false
	for _, candidate := range candidates {
		resolved, err := filepath.EvalSymlinks(candidate.Path)
		if err != nil {
			continue // Donor died since indexing
		}

		if !conf.targetAllowed(resolved) {
			log.Warn().
				Str("link", link.Path).
				Str("donor", resolved).
				Msg("Donor resolves outside allowed prefixes, skipping")
			sawUnsafe = true
			continue
		}

		if err := replaceSymlink(link.Path, resolved); err != nil {
			return OutcomeNotFound, fmt.Errorf("replace symlink %s: %w", link.Path, err)
		}

		log.Info().
			Str("link", link.Path).
			Str("donor", resolved).
			Msg("Hotswapped broken symlink")
		s.recordRepair(ctx, link.Path, resolved)
		return OutcomeRepaired, nil
	}

	if sawUnsafe {
		return OutcomeUnsafe, nil
	}
	return OutcomeNotFound, nil
}

// recordRepair writes the swap into the action queue as a resolved hotswap
// action. If a remote search was still pending for this path, the repair
// closes it instead: a fixed link has nothing left to search for. Recording
// is best-effort; the swap already happened.
func (s *Service) recordRepair(ctx context.Context, linkPath, donor string) {
	action, _, err := s.actions.Enqueue(ctx, linkPath, models.ActionKindHotswap, models.HotswapPayload{SourcePath: donor})
	if err == nil {
		err = s.actions.MarkSent(ctx, action.ID)
	}
	if err == nil {
		err = s.actions.Resolve(ctx, action.ID, true, "")
	}
	if err != nil {
		log.Warn().Err(err).Str("link", linkPath).Msg("Failed to record hotswap action")
	}
}

func (s *Service) findCandidates(ctx context.Context, id mediaid.Identity) ([]*models.HotswapItem, error) {
	if id.TMDBID > 0 {
		candidates, err := s.items.FindByTMDB(ctx, id.TMDBID, id.Season, id.Episode)
		if err != nil || len(candidates) > 0 {
			return candidates, err
		}
	}
	if id.NormTitle == "" {
		return nil, nil
	}
	return s.items.FindByTitle(ctx, id.NormTitle, id.Season, id.Episode)
}

func (c *settings) enabled() bool {
	return c.secondaryRoot != "" && len(c.allowPrefixes) > 0
}

func (c *settings) targetAllowed(resolved string) bool {
	resolved = pathcmp.NormalizePath(resolved)
	for _, prefix := range c.allowPrefixes {
		if pathcmp.HasPathPrefix(resolved, prefix) {
			return true
		}
	}
	return false
}

// replaceSymlink atomically swaps the link at path to point at target, via a
// temp link and rename so a crash never leaves the path missing.
func replaceSymlink(path, target string) error {
	tmp := path + ".refresherr.tmp"
	os.Remove(tmp)

	if err := os.Symlink(target, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
