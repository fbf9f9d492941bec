// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/services/dispatch"
	"github.com/Bollo123view/refresherr/internal/testdb"
)

func newActionsRouter(t *testing.T, relayURL string) (chi.Router, *models.ActionStore) {
	t.Helper()

	db := testdb.Open(t)
	actions := models.NewActionStore(db)
	dispatchSvc := dispatch.NewService(actions, &domain.Config{
		Relay: domain.RelayConfig{BaseURL: relayURL},
	})

	r := chi.NewRouter()
	NewActionsHandler(actions, dispatchSvc).RegisterRoutes(r)
	return r, actions
}

func TestActionsHandler_ListAndStats(t *testing.T) {
	r, actions := newActionsRouter(t, "http://relay.local")
	ctx := context.Background()

	payload := models.RemoteSearchPayload{
		Target: "sonarr_tv",
		Scope:  "season",
		Term:   "The Show S01",
		URL:    "http://relay.local/find?term=a",
	}
	_, created, err := actions.Enqueue(ctx, "The Show::S01", models.ActionKindRemoteSearch, payload)
	require.NoError(t, err)
	require.True(t, created)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions?status=pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []*models.Action
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "The Show::S01", listed[0].RelatedPath)
	assert.Equal(t, models.ActionKindRemoteSearch, listed[0].Kind)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 1, stats["pending"])
	assert.Equal(t, 0, stats["sent"])
}

func TestActionsHandler_ListRejectsUnknownStatus(t *testing.T) {
	r, _ := newActionsRouter(t, "http://relay.local")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActionsHandler_DispatchPending(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(relay.Close)

	r, actions := newActionsRouter(t, relay.URL)
	ctx := context.Background()

	payload := models.RemoteSearchPayload{
		Target: "sonarr_tv",
		Scope:  "auto",
		Term:   "a",
		URL:    relay.URL + "/find?term=a",
	}
	_, _, err := actions.Enqueue(ctx, "/data/tv/a.mkv", models.ActionKindRemoteSearch, payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/dispatch", strings.NewReader(`{"limit": 10}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var result dispatch.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 1, result.Dispatched)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	counts, err := actions.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[models.ActionStatusPending])
	assert.Equal(t, 1, counts[models.ActionStatusOK])
}

func TestActionsHandler_GetNotFound(t *testing.T) {
	r, _ := newActionsRouter(t, "http://relay.local")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
