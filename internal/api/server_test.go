// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Bollo123view/refresherr/internal/config"
	"github.com/Bollo123view/refresherr/internal/metrics"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/pathmap"
	"github.com/Bollo123view/refresherr/internal/services/dispatch"
	"github.com/Bollo123view/refresherr/internal/services/hotswap"
	"github.com/Bollo123view/refresherr/internal/services/orchestrator"
	"github.com/Bollo123view/refresherr/internal/services/remotesearch"
	"github.com/Bollo123view/refresherr/internal/services/scanner"
	"github.com/Bollo123view/refresherr/internal/testdb"
)

func newTestDependencies(t *testing.T) *Dependencies {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
libraryRoots:
  - "`+t.TempDir()+`"
routes:
  - prefix: "/opt/media/jelly/tv"
    target: "sonarr_tv"
    scope: "tv"
relay:
  baseUrl: "http://relay:8484"
`), 0o644))

	appCfg, err := config.New(configPath, "test")
	require.NoError(t, err)
	cfg := appCfg.Config()

	db := testdb.Open(t)
	symlinks := models.NewSymlinkStore(db)
	actions := models.NewActionStore(db)
	runs := models.NewRepairRunStore(db)
	state := models.NewOrchestratorStateStore(db)
	items := models.NewHotswapItemStore(db)

	scannerSvc := scanner.NewService(symlinks, pathmap.NewMapper(cfg.PathMappings))
	dispatchSvc := dispatch.NewService(actions, cfg)

	orchestratorSvc := orchestrator.NewService(appCfg.Config,
		scannerSvc,
		hotswap.NewService(items, actions, cfg),
		remotesearch.NewService(actions, cfg),
		dispatchSvc,
		runs, state)

	return &Dependencies{
		Config:       appCfg,
		Version:      "test",
		Orchestrator: orchestratorSvc,
		Scanner:      scannerSvc,
		Dispatch:     dispatchSvc,
		SymlinkStore: symlinks,
		ActionStore:  actions,
		Metrics:      metrics.NewManager(symlinks, actions, items, runs),
	}
}

func TestCORSPreflight(t *testing.T) {
	deps := newTestDependencies(t)

	router := NewServer(deps).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/repair/status", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSAllowsXRequestedWithHeader(t *testing.T) {
	deps := newTestDependencies(t)

	router := NewServer(deps).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/repair/status", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "x-requested-with")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	// rs/cors echoes back allowed headers (normalized to lowercase)
	allowedHeaders := strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers"))
	require.Contains(t, allowedHeaders, "x-requested-with")
}

func TestMetricsEndpoint(t *testing.T) {
	deps := newTestDependencies(t)

	router := NewServer(deps).Handler()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "refresherr_symlinks")
}

func TestMetricsEndpointAbsentWhenDisabled(t *testing.T) {
	deps := newTestDependencies(t)
	deps.Metrics = nil

	router := NewServer(deps).Handler()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
