// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bollo123view/refresherr/internal/domain"
)

func newTestRouter() *Router {
	return NewRouter([]domain.Route{
		{Prefix: "/opt/media/jelly", Target: "generic", Scope: "movie"},
		{Prefix: "/opt/media/jelly/tv", Target: "sonarr_tv", Scope: "tv"},
		{Prefix: "/opt/media/jelly/tv/anime", Target: "sonarr_anime", Scope: "tv"},
		{Prefix: "/opt/media/jelly/movies", Target: "radarr", Scope: "movie"},
	})
}

func TestRouterResolve(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name       string
		path       string
		wantTarget string
		wantOK     bool
	}{
		{name: "longest prefix wins", path: "/opt/media/jelly/tv/anime/Show/S01/e01.mkv", wantTarget: "sonarr_anime", wantOK: true},
		{name: "mid prefix", path: "/opt/media/jelly/tv/Show/S01/e01.mkv", wantTarget: "sonarr_tv", wantOK: true},
		{name: "shortest prefix", path: "/opt/media/jelly/extras/clip.mkv", wantTarget: "generic", wantOK: true},
		{name: "boundary safe", path: "/opt/media/jelly2/tv/e01.mkv", wantTarget: "", wantOK: false},
		{name: "unrouted", path: "/srv/other/e01.mkv", wantTarget: "", wantOK: false},
		{name: "trailing slash normalized", path: "/opt/media/jelly/movies/Film (2020)/film.mkv/", wantTarget: "radarr", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, ok := r.Resolve(tt.path)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTarget, route.Target)
		})
	}
}

func TestRouterMatchOrder(t *testing.T) {
	r := newTestRouter()
	routes := r.Routes()
	require.Len(t, routes, 4)
	// Longest first so Resolve can stop at the first hit.
	for i := 1; i < len(routes); i++ {
		assert.GreaterOrEqual(t, len(routes[i-1].Prefix), len(routes[i].Prefix))
	}
}
