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
	"github.com/Bollo123view/refresherr/internal/services/orchestrator"
	"github.com/Bollo123view/refresherr/internal/services/scanner"
)

// RepairHandler handles HTTP requests for repair runs.
type RepairHandler struct {
	orchestrator *orchestrator.Service
}

// NewRepairHandler creates a new RepairHandler.
func NewRepairHandler(orchestratorSvc *orchestrator.Service) *RepairHandler {
	return &RepairHandler{orchestrator: orchestratorSvc}
}

// RegisterRoutes wires handler routes under /repair.
func (h *RepairHandler) RegisterRoutes(r chi.Router) {
	r.Route("/repair", func(r chi.Router) {
		r.Post("/", h.triggerRun)
		r.Get("/status", h.getStatus)
		r.Post("/enable", h.enable)
		r.Post("/disable", h.disable)
		r.Delete("/active", h.cancelRun)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.listRuns)
			r.Get("/{runID}", h.getRun)
		})
	})
}

// TriggerRunRequest is the request body for starting a repair run.
type TriggerRunRequest struct {
	Phase string `json:"phase"`
}

// TriggerRunResponse is the response body after a run has been started.
type TriggerRunResponse struct {
	RunID int64  `json:"run_id"`
	Phase string `json:"phase"`
}

func (h *RepairHandler) triggerRun(w http.ResponseWriter, r *http.Request) {
	req := TriggerRunRequest{Phase: models.RunPhaseFull}
	if !DecodeJSONOptional(w, r, &req) {
		return
	}

	switch req.Phase {
	case models.RunPhaseHotswap, models.RunPhaseSearch, models.RunPhaseFull:
	default:
		RespondError(w, http.StatusBadRequest, "Invalid phase")
		return
	}

	runID, err := h.orchestrator.TriggerRun(r.Context(), req.Phase, models.RunTriggerAPI)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrRunInProgress):
			RespondError(w, http.StatusConflict, "A repair run is already in progress")
		case errors.Is(err, scanner.ErrMountNotReady):
			RespondError(w, http.StatusServiceUnavailable, "Debrid mount is not ready")
		default:
			log.Error().Err(err).Msg("Failed to start repair run")
			RespondError(w, http.StatusInternalServerError, "Failed to start repair run")
		}
		return
	}

	RespondJSON(w, http.StatusAccepted, TriggerRunResponse{RunID: runID, Phase: req.Phase})
}

func (h *RepairHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.orchestrator.Status(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read orchestrator status")
		RespondError(w, http.StatusInternalServerError, "Failed to read status")
		return
	}
	RespondJSON(w, http.StatusOK, status)
}

func (h *RepairHandler) enable(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Enable(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to enable automatic repairs")
		RespondError(w, http.StatusInternalServerError, "Failed to enable automatic repairs")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepairHandler) disable(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Disable(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to disable automatic repairs")
		RespondError(w, http.StatusInternalServerError, "Failed to disable automatic repairs")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepairHandler) cancelRun(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.CancelRun()
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepairHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.orchestrator.ListRuns(r.Context(), ParseLimitQuery(r, 20))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list repair runs")
		RespondError(w, http.StatusInternalServerError, "Failed to list repair runs")
		return
	}
	RespondJSON(w, http.StatusOK, runs)
}

func (h *RepairHandler) getRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := ParseInt64Param(w, r, "runID", "run ID")
	if !ok {
		return
	}

	run, err := h.orchestrator.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondError(w, http.StatusNotFound, "Run not found")
			return
		}
		log.Error().Err(err).Int64("run", runID).Msg("Failed to load repair run")
		RespondError(w, http.StatusInternalServerError, "Failed to load repair run")
		return
	}
	RespondJSON(w, http.StatusOK, run)
}
