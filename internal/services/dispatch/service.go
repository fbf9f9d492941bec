// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package dispatch drains the pending action queue against the search relay.
// Every pending action is marked sent, fired exactly once per pass, and then
// resolved: 2xx responses resolve it ok, anything else failed with the error
// recorded.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/buildinfo"
	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/models"
)

// Result summarizes one queue drain.
type Result struct {
	Dispatched int `json:"dispatched"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
}

// settings is one immutable snapshot of the config-derived state; reloads
// publish a fresh snapshot instead of mutating what a drain may be reading.
type settings struct {
	httpClient *http.Client
	retries    uint
}

// Service fires pending actions at the relay.
type Service struct {
	actions *models.ActionStore

	mu       sync.RWMutex
	settings *settings
}

// NewService creates a dispatch service from config.
func NewService(actions *models.ActionStore, cfg *domain.Config) *Service {
	s := &Service{actions: actions}
	s.ApplyConfig(cfg)
	return s
}

// ApplyConfig publishes new timeout and retry settings after a config reload.
func (s *Service) ApplyConfig(cfg *domain.Config) {
	timeout := cfg.Relay.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	next := &settings{httpClient: &http.Client{Timeout: timeout}}
	if cfg.Relay.Retries > 0 {
		next.retries = uint(cfg.Relay.Retries)
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

// ProcessPending drains up to limit pending actions, oldest first.
func (s *Service) ProcessPending(ctx context.Context, limit int) (*Result, error) {
	pending, err := s.actions.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}

	conf := s.snapshot()

	result := &Result{}
	for _, action := range pending {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		payload, decodeErr := action.RemoteSearchPayload()
		if decodeErr != nil {
			// Only remote_search actions are dispatchable over HTTP.
			if err := s.actions.MarkSent(ctx, action.ID); err != nil {
				return result, err
			}
			if err := s.actions.Resolve(ctx, action.ID, false, decodeErr.Error()); err != nil {
				return result, err
			}
			result.Dispatched++
			result.Failed++
			continue
		}

		if err := s.actions.MarkSent(ctx, action.ID); err != nil {
			return result, err
		}
		result.Dispatched++

		if err := conf.fire(ctx, payload.URL); err != nil {
			log.Warn().Err(err).Int64("action", action.ID).Str("term", payload.Term).Msg("Action dispatch failed")
			if err := s.actions.Resolve(ctx, action.ID, false, err.Error()); err != nil {
				return result, err
			}
			result.Failed++
			continue
		}

		if err := s.actions.Resolve(ctx, action.ID, true, ""); err != nil {
			return result, err
		}
		log.Info().Int64("action", action.ID).Str("term", payload.Term).Msg("Action dispatched")
		result.Succeeded++
	}

	return result, nil
}

// fire performs one GET against the relay, retrying transport errors and 5xx
// responses. Non-2xx after retries is a dispatch failure.
func (c *settings) fire(ctx context.Context, url string) error {
	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Unrecoverable(errors.Wrap(err, "build relay request"))
		}
		req.Header.Set("User-Agent", buildinfo.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.Wrap(err, "relay request failed")
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("relay returned status %d", resp.StatusCode)
		}
		return retry.Unrecoverable(fmt.Errorf("relay returned status %d", resp.StatusCode))
	},
		retry.Attempts(c.retries+1),
		retry.Delay(time.Second),
		retry.MaxJitter(time.Second),
		retry.LastErrorOnly(true),
	)
	return err
}
