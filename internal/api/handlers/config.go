// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Bollo123view/refresherr/internal/config"
	"github.com/Bollo123view/refresherr/internal/domain"
)

// ConfigHandler exposes the running configuration, with the relay token
// redacted.
type ConfigHandler struct {
	cfg     *config.AppConfig
	version string
}

// ConfigResponse represents the configuration payload returned to clients.
type ConfigResponse struct {
	Host                 string                    `json:"host"`
	Port                 int                       `json:"port"`
	LogLevel             string                    `json:"log_level"`
	LogPath              string                    `json:"log_path"`
	Mount                string                    `json:"mount"`
	LibraryRoots         []string                  `json:"library_roots"`
	IgnorePaths          []string                  `json:"ignore_paths,omitempty"`
	SecondaryRoot        string                    `json:"secondary_root,omitempty"`
	HotswapAllowPrefixes []string                  `json:"hotswap_allow_prefixes,omitempty"`
	PathMappings         []domain.PathMapping      `json:"path_mappings,omitempty"`
	Routes               []domain.Route            `json:"routes,omitempty"`
	RelayBaseURL         string                    `json:"relay_base_url"`
	RelayTokenSet        bool                      `json:"relay_token_set"`
	Orchestrator         domain.OrchestratorConfig `json:"orchestrator"`
	Version              string                    `json:"version"`
}

// NewConfigHandler creates a ConfigHandler instance.
func NewConfigHandler(cfg *config.AppConfig, version string) *ConfigHandler {
	return &ConfigHandler{cfg: cfg, version: version}
}

// RegisterRoutes wires handler routes under /config.
func (h *ConfigHandler) RegisterRoutes(r chi.Router) {
	r.Route("/config", func(r chi.Router) {
		r.Get("/", h.getConfig)
	})
}

func (h *ConfigHandler) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Config()
	RespondJSON(w, http.StatusOK, ConfigResponse{
		Host:                 cfg.Host,
		Port:                 cfg.Port,
		LogLevel:             cfg.LogLevel,
		LogPath:              cfg.LogPath,
		Mount:                cfg.Mount,
		LibraryRoots:         cfg.LibraryRoots,
		IgnorePaths:          cfg.IgnorePaths,
		SecondaryRoot:        cfg.SecondaryRoot,
		HotswapAllowPrefixes: cfg.HotswapAllowPrefixes,
		PathMappings:         cfg.PathMappings,
		Routes:               cfg.Routes,
		RelayBaseURL:         cfg.Relay.BaseURL,
		RelayTokenSet:        cfg.Relay.Token != "",
		Orchestrator:         cfg.Orchestrator,
		Version:              h.version,
	})
}
