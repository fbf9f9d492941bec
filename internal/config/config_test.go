// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
libraryRoots:
  - "/opt/media/jelly"
routes:
  - prefix: "/opt/media/jelly/tv"
    target: "sonarr_tv"
    scope: "tv"
relay:
  baseUrl: "http://relay:8484"
`

func TestNewLoadsConfig(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	ac, err := New(path, "test")
	require.NoError(t, err)

	cfg := ac.Config()
	assert.Equal(t, []string{"/opt/media/jelly"}, cfg.LibraryRoots)
	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "sonarr_tv", cfg.Routes[0].Target)
	assert.Equal(t, "http://relay:8484", cfg.Relay.BaseURL)

	// Defaults fill in what the file omits.
	assert.Equal(t, 8282, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.Relay.Timeout)
	assert.Equal(t, 2, cfg.Orchestrator.SeasonSearchThreshold)
	assert.True(t, cfg.Orchestrator.Enabled)
}

func TestNewEnvOverride(t *testing.T) {
	t.Setenv("REFRESHERR__PORT", "9999")
	t.Setenv("REFRESHERR__RELAY_BASEURL", "http://other:1")

	path := writeConfig(t, minimalConfig)

	ac, err := New(path, "test")
	require.NoError(t, err)

	cfg := ac.Config()
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "http://other:1", cfg.Relay.BaseURL)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
libraryRoots: []
`)

	_, err := New(path, "test")
	assert.Error(t, err)
}

func TestNewWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	// First run writes a starter file; it fails validation until the
	// operator fills in library roots, but the file must exist afterwards.
	_, err := New(path, "test")
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestDatabasePath(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
dataDir: "/var/lib/refresherr"
`)

	ac, err := New(path, "test")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/lib/refresherr", "refresherr.db"), ac.DatabasePath())
}

func TestDatabasePathNextToConfig(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	ac, err := New(path, "test")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "refresherr.db"), ac.DatabasePath())
}
