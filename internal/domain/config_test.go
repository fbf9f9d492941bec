// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		LibraryRoots: []string{"/opt/media/jelly"},
		Routes: []Route{
			{Prefix: "/opt/media/jelly/tv", Target: "sonarr_tv", Scope: "tv"},
			{Prefix: "/opt/media/jelly/movies", Target: "radarr", Scope: "movie"},
		},
		Relay: RelayConfig{BaseURL: "http://relay:8484"},
		Orchestrator: OrchestratorConfig{
			SeasonSearchThreshold: 2,
		},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("no library roots", func(t *testing.T) {
		cfg := validConfig()
		cfg.LibraryRoots = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate route prefix after normalization", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routes = append(cfg.Routes, Route{Prefix: "/opt/media/jelly/tv/", Target: "other", Scope: "tv"})
		assert.Error(t, cfg.Validate())
	})

	t.Run("route without target", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routes[0].Target = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("routes require relay base url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Relay.BaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("season threshold below one", func(t *testing.T) {
		cfg := validConfig()
		cfg.Orchestrator.SeasonSearchThreshold = 0
		assert.Error(t, cfg.Validate())
	})
}
