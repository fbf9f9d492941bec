// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api exposes the HTTP surface: repair runs, the action queue, the
// symlink inventory, health probes, and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/Bollo123view/refresherr/internal/api/handlers"
	"github.com/Bollo123view/refresherr/internal/config"
	"github.com/Bollo123view/refresherr/internal/metrics"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/services/dispatch"
	"github.com/Bollo123view/refresherr/internal/services/orchestrator"
	"github.com/Bollo123view/refresherr/internal/services/scanner"
)

// Dependencies bundles everything the HTTP layer needs.
type Dependencies struct {
	Config       *config.AppConfig
	Version      string
	Orchestrator *orchestrator.Service
	Scanner      *scanner.Service
	Dispatch     *dispatch.Service
	SymlinkStore *models.SymlinkStore
	ActionStore  *models.ActionStore
	Metrics      *metrics.Manager
}

// Server builds the HTTP handler tree.
type Server struct {
	deps *Dependencies
}

// NewServer creates a Server instance.
func NewServer(deps *Dependencies) *Server {
	return &Server{deps: deps}
}

// Handler assembles the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.New(cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	healthHandler := handlers.NewHealthHandler(func() error {
		return s.deps.Scanner.CheckMount(s.deps.Config.Config())
	})
	r.Route("/health", healthHandler.Routes)

	r.Route("/api", func(r chi.Router) {
		handlers.NewConfigHandler(s.deps.Config, s.deps.Version).RegisterRoutes(r)
		handlers.NewLibraryHandler(s.deps.Config, s.deps.Scanner, s.deps.SymlinkStore).RegisterRoutes(r)
		handlers.NewRepairHandler(s.deps.Orchestrator).RegisterRoutes(r)
		handlers.NewActionsHandler(s.deps.ActionStore, s.deps.Dispatch).RegisterRoutes(r)
	})

	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			s.deps.Metrics.GetRegistry(),
			promhttp.HandlerOpts{},
		))
	}

	return r
}
