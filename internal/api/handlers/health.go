// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthHandler serves liveness and readiness probes. Readiness fails while
// the debrid mount is unreachable.
type HealthHandler struct {
	checkMount func() error
}

// NewHealthHandler creates a new HealthHandler. checkMount may be nil, in
// which case readiness always succeeds.
func NewHealthHandler(checkMount func() error) *HealthHandler {
	return &HealthHandler{checkMount: checkMount}
}

// Routes wires handler routes.
func (h *HealthHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleHealth)
	r.Get("/liveness", h.HandleLiveness)
	r.Get("/readiness", h.HandleReady)
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.checkMount != nil {
		if err := h.checkMount(); err != nil {
			RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
