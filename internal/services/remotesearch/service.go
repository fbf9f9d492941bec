// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package remotesearch turns broken symlinks that hotswap could not fix into
// queued relay search actions, collapsing clusters of broken episodes into a
// single season search.
package remotesearch

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/routing"
)

// Outcome of queueing one broken link.
type Outcome string

const (
	// OutcomeEnqueued means a new action is now pending for this link.
	OutcomeEnqueued Outcome = "enqueued"
	// OutcomeAlreadyPending means an equivalent action was already queued.
	OutcomeAlreadyPending Outcome = "already_pending"
	// OutcomeUnrouted means no route prefix owns this path.
	OutcomeUnrouted Outcome = "unrouted"
)

// Result summarizes one queueing pass.
type Result struct {
	Enqueued       int                `json:"enqueued"`
	AlreadyPending int                `json:"alreadyPending"`
	Unrouted       int                `json:"unrouted"`
	PerPath        map[string]Outcome `json:"-"`
}

// settings is one immutable snapshot of the config-derived state. Reloads
// publish a fresh snapshot; an in-flight Queue keeps the one it started with.
type settings struct {
	router          *routing.Router
	relayBase       string
	relayToken      string
	seasonThreshold int
}

// Service routes broken links to search targets and enqueues relay actions.
type Service struct {
	actions *models.ActionStore

	mu       sync.RWMutex
	settings *settings
}

// NewService creates a remote-search service from config.
func NewService(actions *models.ActionStore, cfg *domain.Config) *Service {
	s := &Service{actions: actions}
	s.ApplyConfig(cfg)
	return s
}

// ApplyConfig publishes a new settings snapshot after a config reload.
func (s *Service) ApplyConfig(cfg *domain.Config) {
	threshold := cfg.Orchestrator.SeasonSearchThreshold
	if threshold < 1 {
		threshold = 1
	}
	next := &settings{
		router:          routing.NewRouter(cfg.Routes),
		relayBase:       strings.TrimRight(cfg.Relay.BaseURL, "/"),
		relayToken:      cfg.Relay.Token,
		seasonThreshold: threshold,
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

// Queue routes every broken link and enqueues search actions. TV links that
// cluster in the same show and season at or above the season threshold are
// collapsed into one season search; everything else is queued per item.
// Enqueueing is idempotent: links whose action is already pending are
// reported as such, not duplicated.
func (s *Service) Queue(ctx context.Context, links []*models.Symlink) (*Result, error) {
	conf := s.snapshot()
	result := &Result{PerPath: make(map[string]Outcome, len(links))}

	type seasonKey struct {
		target string
		show   string
		season int
	}
	seasonGroups := make(map[seasonKey][]string)
	type item struct {
		route routing.Route
		path  string
	}
	var individual []item

	for _, link := range links {
		route, ok := conf.router.Resolve(link.Path)
		if !ok {
			result.Unrouted++
			result.PerPath[link.Path] = OutcomeUnrouted
			continue
		}

		if route.Scope == "tv" {
			if show, season, ok := extractShowSeason(link.Path); ok {
				key := seasonKey{target: route.Target, show: show, season: season}
				seasonGroups[key] = append(seasonGroups[key], link.Path)
				continue
			}
		}
		individual = append(individual, item{route: route, path: link.Path})
	}

	for key, paths := range seasonGroups {
		if len(paths) < conf.seasonThreshold {
			route, _ := conf.router.Resolve(paths[0])
			for _, p := range paths {
				individual = append(individual, item{route: route, path: p})
			}
			continue
		}

		term := fmt.Sprintf("%s S%02d", key.show, key.season)
		relatedPath := fmt.Sprintf("%s::S%02d", key.show, key.season)
		payload := models.RemoteSearchPayload{
			Target: key.target,
			Scope:  "season",
			Term:   term,
			URL:    conf.buildURL(key.target, "season", term),
		}

		_, created, err := s.actions.Enqueue(ctx, relatedPath, models.ActionKindRemoteSearch, payload)
		if err != nil {
			return nil, err
		}

		outcome := OutcomeAlreadyPending
		if created {
			outcome = OutcomeEnqueued
			result.Enqueued++
			log.Info().Str("term", term).Int("links", len(paths)).Msg("Queued season search")
		} else {
			result.AlreadyPending++
		}
		for _, p := range paths {
			result.PerPath[p] = outcome
		}
	}

	for _, it := range individual {
		term := s.buildTerm(it.path, it.route)
		payload := models.RemoteSearchPayload{
			Target: it.route.Target,
			Scope:  "auto",
			Term:   term,
			URL:    conf.buildURL(it.route.Target, "auto", term),
		}

		_, created, err := s.actions.Enqueue(ctx, it.path, models.ActionKindRemoteSearch, payload)
		if err != nil {
			return nil, err
		}
		if created {
			result.Enqueued++
			result.PerPath[it.path] = OutcomeEnqueued
			log.Info().Str("term", term).Str("path", it.path).Msg("Queued remote search")
		} else {
			result.AlreadyPending++
			result.PerPath[it.path] = OutcomeAlreadyPending
		}
	}

	return result, nil
}

func (c *settings) buildURL(target, scope, term string) string {
	q := url.Values{}
	if c.relayToken != "" {
		q.Set("token", c.relayToken)
	}
	q.Set("type", target)
	q.Set("scope", scope)
	q.Set("term", term)
	return c.relayBase + "/find?" + q.Encode()
}

// buildTerm derives the search term for a single link. TV terms prefer
// "<Show> SxxEyy"; movie terms fall back to the release directory name.
func (s *Service) buildTerm(p string, route routing.Route) string {
	base := path.Base(p)
	stem := strings.TrimSuffix(base, path.Ext(base))

	if route.Scope == "tv" {
		token := extractEpisodeToken(base)
		show, _, hasShow := extractShowSeason(p)
		switch {
		case hasShow && token != "":
			return show + " " + token
		case hasShow:
			return show
		default:
			return stem
		}
	}

	if parent := path.Base(path.Dir(p)); parent != "." && parent != "/" {
		return parent
	}
	return stem
}

var (
	sxxEyyRe    = regexp.MustCompile(`(?i)S(\d{1,2})E(\d{1,3})`)
	crossEpRe   = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{2,3})\b`)
	seasonDirRe = regexp.MustCompile(`(?i)^Season\s*(\d{1,2})$`)
)

// extractEpisodeToken normalizes SxxEyy (or NNxNN) numbering from a name.
func extractEpisodeToken(name string) string {
	if m := sxxEyyRe.FindStringSubmatch(name); m != nil {
		s, _ := strconv.Atoi(m[1])
		e, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("S%02dE%02d", s, e)
	}
	if m := crossEpRe.FindStringSubmatch(name); m != nil {
		s, _ := strconv.Atoi(m[1])
		e, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("S%02dE%02d", s, e)
	}
	return ""
}

// extractShowSeason expects the .../<Show Name>/Season N/<file> layout and
// returns the raw show directory name plus the season number.
func extractShowSeason(p string) (string, int, bool) {
	segments := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	for i, seg := range segments {
		m := seasonDirRe.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		if i == 0 {
			return "", 0, false
		}
		season, _ := strconv.Atoi(m[1])
		return segments[i-1], season, true
	}
	return "", 0, false
}
