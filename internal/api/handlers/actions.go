// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Bollo123view/refresherr/internal/models"
	"github.com/Bollo123view/refresherr/internal/services/dispatch"
)

// ActionsHandler handles HTTP requests for the repair action queue.
type ActionsHandler struct {
	actions  *models.ActionStore
	dispatch *dispatch.Service
}

// NewActionsHandler creates a new ActionsHandler.
func NewActionsHandler(actions *models.ActionStore, dispatchSvc *dispatch.Service) *ActionsHandler {
	return &ActionsHandler{actions: actions, dispatch: dispatchSvc}
}

// RegisterRoutes wires handler routes under /actions.
func (h *ActionsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/actions", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/stats", h.getStats)
		r.Post("/dispatch", h.dispatchPending)
		r.Get("/{actionID}", h.get)
	})
}

func (h *ActionsHandler) list(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.ActionStatusPending, models.ActionStatusSent, models.ActionStatusOK, models.ActionStatusFailed:
	default:
		RespondError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	actions, err := h.actions.List(r.Context(), status, ParseLimitQuery(r, 100))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list actions")
		RespondError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}
	RespondJSON(w, http.StatusOK, actions)
}

func (h *ActionsHandler) getStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.actions.Counts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to count actions")
		RespondError(w, http.StatusInternalServerError, "Failed to count actions")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int{
		"pending": counts[models.ActionStatusPending],
		"sent":    counts[models.ActionStatusSent],
		"ok":      counts[models.ActionStatusOK],
		"failed":  counts[models.ActionStatusFailed],
	})
}

// DispatchRequest is the request body for draining the action queue.
type DispatchRequest struct {
	Limit int `json:"limit"`
}

func (h *ActionsHandler) dispatchPending(w http.ResponseWriter, r *http.Request) {
	req := DispatchRequest{Limit: 25}
	if !DecodeJSONOptional(w, r, &req) {
		return
	}
	if req.Limit <= 0 {
		RespondError(w, http.StatusBadRequest, "limit must be > 0")
		return
	}

	result, err := h.dispatch.ProcessPending(r.Context(), req.Limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to dispatch pending actions")
		RespondError(w, http.StatusInternalServerError, "Failed to dispatch pending actions")
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

func (h *ActionsHandler) get(w http.ResponseWriter, r *http.Request) {
	actionID, ok := ParseInt64Param(w, r, "actionID", "action ID")
	if !ok {
		return
	}

	action, err := h.actions.Get(r.Context(), actionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondError(w, http.StatusNotFound, "Action not found")
			return
		}
		log.Error().Err(err).Int64("action", actionID).Msg("Failed to load action")
		RespondError(w, http.StatusInternalServerError, "Failed to load action")
		return
	}
	RespondJSON(w, http.StatusOK, action)
}
