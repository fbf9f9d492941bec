// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/config"
	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/services/scanner"
)

// LibraryHandler handles HTTP requests for the symlink inventory.
type LibraryHandler struct {
	cfg      *config.AppConfig
	scanner  *scanner.Service
	symlinks *models.SymlinkStore
}

// NewLibraryHandler creates a new LibraryHandler.
func NewLibraryHandler(cfg *config.AppConfig, scannerSvc *scanner.Service, symlinks *models.SymlinkStore) *LibraryHandler {
	return &LibraryHandler{
		cfg:      cfg,
		scanner:  scannerSvc,
		symlinks: symlinks,
	}
}

// RegisterRoutes wires handler routes under /library.
func (h *LibraryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/library", func(r chi.Router) {
		r.Post("/scan", h.scan)
		r.Get("/broken", h.listBroken)
		r.Get("/stats", h.getStats)
	})
}

func (h *LibraryHandler) scan(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.Scan(r.Context(), h.cfg.Config())
	if err != nil {
		if errors.Is(err, scanner.ErrMountNotReady) {
			RespondError(w, http.StatusServiceUnavailable, "Debrid mount is not ready")
			return
		}
		log.Error().Err(err).Msg("Library scan failed")
		RespondError(w, http.StatusInternalServerError, "Library scan failed")
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

func (h *LibraryHandler) listBroken(w http.ResponseWriter, r *http.Request) {
	broken, err := h.symlinks.ListBroken(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list broken symlinks")
		RespondError(w, http.StatusInternalServerError, "Failed to list broken symlinks")
		return
	}
	RespondJSON(w, http.StatusOK, broken)
}

func (h *LibraryHandler) getStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.symlinks.Counts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to count symlinks")
		RespondError(w, http.StatusInternalServerError, "Failed to count symlinks")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int{
		"ok":     counts[models.SymlinkStatusOK],
		"broken": counts[models.SymlinkStatusBroken],
	})
}
