// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package routing decides which remote-search target a broken library path
// belongs to. Routes are prefix based, longest match wins.
package routing

import (
	"sort"

	"github.com/Bollo123view/refresherr/internal/domain"
	"github.com/Bollo123view/refresherr/pkg/pathcmp"
)

// Route is a resolved routing decision.
type Route struct {
	Prefix string
	Target string
	Scope  string
}

// Router maps library paths to search targets via longest-prefix match.
type Router struct {
	routes []Route
}

// NewRouter builds a Router from config. Prefixes are normalized and sorted
// longest-first so Resolve can return the first hit; equal-length prefixes
// keep their configured order.
func NewRouter(cfgs []domain.Route) *Router {
	r := &Router{routes: make([]Route, 0, len(cfgs))}
	for _, c := range cfgs {
		prefix := pathcmp.NormalizePath(c.Prefix)
		if prefix == "" || c.Target == "" {
			continue
		}
		r.routes = append(r.routes, Route{Prefix: prefix, Target: c.Target, Scope: c.Scope})
	}
	sort.SliceStable(r.routes, func(i, j int) bool {
		return len(r.routes[i].Prefix) > len(r.routes[j].Prefix)
	})
	return r
}

// Resolve returns the route owning p, or false when no prefix matches.
// Matching is boundary-safe: /opt/media/tv2 never matches a /opt/media/tv
// route.
func (r *Router) Resolve(p string) (Route, bool) {
	p = pathcmp.NormalizePath(p)
	for _, route := range r.routes {
		if pathcmp.HasPathPrefix(p, route.Prefix) {
			return route, true
		}
	}
	return Route{}, false
}

// Routes returns the configured routes in match order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}
