// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/testdb"
)

func testConfig() *domain.Config {
	return &domain.Config{
		Relay: domain.RelayConfig{Timeout: 5 * time.Second, Retries: 0},
	}
}

func enqueueSearch(t *testing.T, actions *models.ActionStore, url, path string) *models.Action {
	t.Helper()
	payload := models.RemoteSearchPayload{Target: "sonarr_tv", Scope: "auto", Term: path, URL: url}
	action, created, err := actions.Enqueue(context.Background(), path, models.ActionKindRemoteSearch, payload)
	require.NoError(t, err)
	require.True(t, created)
	return action
}

func TestProcessPendingResolvesOK(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/find", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	actions := models.NewActionStore(testdb.Open(t))
	a := enqueueSearch(t, actions, srv.URL+"/find?term=Show+S01", "/x.mkv")

	svc := NewService(actions, testConfig())
	result, err := svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dispatched)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, int32(1), hits.Load())

	got, err := actions.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusOK, got.Status)
	assert.NotNil(t, got.ResolvedAt)
}

func TestProcessPendingResolvesFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	actions := models.NewActionStore(testdb.Open(t))
	a := enqueueSearch(t, actions, srv.URL+"/find?term=X", "/x.mkv")

	svc := NewService(actions, testConfig())
	result, err := svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dispatched)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	got, err := actions.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusFailed, got.Status)
	assert.Contains(t, got.LastError, "403")
	assert.NotNil(t, got.ResolvedAt)
}

func TestProcessPendingRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	actions := models.NewActionStore(testdb.Open(t))
	enqueueSearch(t, actions, srv.URL+"/find?term=X", "/x.mkv")

	cfg := testConfig()
	cfg.Relay.Retries = 2
	svc := NewService(actions, cfg)

	result, err := svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.GreaterOrEqual(t, hits.Load(), int32(2))
}

func TestProcessPendingHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	actions := models.NewActionStore(testdb.Open(t))
	enqueueSearch(t, actions, srv.URL+"/a", "/a.mkv")
	enqueueSearch(t, actions, srv.URL+"/b", "/b.mkv")

	svc := NewService(actions, testConfig())
	result, err := svc.ProcessPending(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	pending, err := actions.ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestProcessPendingUndispatchableKind(t *testing.T) {
	actions := models.NewActionStore(testdb.Open(t))
	a, _, err := actions.Enqueue(context.Background(), "/x.mkv", models.ActionKindHotswap, models.HotswapPayload{SourcePath: "/mnt/zurg/x.mkv"})
	require.NoError(t, err)

	svc := NewService(actions, testConfig())
	result, err := svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dispatched)
	assert.Equal(t, 1, result.Failed)

	got, err := actions.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusFailed, got.Status)
}

func TestApplyConfigDuringDrain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	actions := models.NewActionStore(testdb.Open(t))
	for i := 0; i < 20; i++ {
		enqueueSearch(t, actions, srv.URL+"/find", fmt.Sprintf("/f%d.mkv", i))
	}

	svc := NewService(actions, testConfig())

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			cfg := testConfig()
			cfg.Relay.Retries = i % 3
			svc.ApplyConfig(cfg)
		}
	}()

	// Each drain works off the snapshot it started with; reloads on the
	// side must not disturb it.
	total := 0
	for total < 20 {
		result, err := svc.ProcessPending(context.Background(), 5)
		require.NoError(t, err)
		total += result.Succeeded + result.Failed
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 20, total)
}
