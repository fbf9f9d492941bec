// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("Failed to encode JSON response")
		}
	}
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error: message,
	})
}

// DecodeJSON decodes the request body into the provided struct.
// Returns false if decoding fails (error already sent to client).
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// DecodeJSONOptional decodes the request body into the provided struct.
// Returns true if decoding succeeds or body is empty (io.EOF).
// Returns false only on actual decode errors (error already sent to client).
func DecodeJSONOptional[T any](w http.ResponseWriter, r *http.Request, dest *T) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && err != io.EOF {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// ParseInt64Param extracts and validates an int64 URL parameter.
// Returns the value and true on success, or 0 and false if invalid (error already sent).
func ParseInt64Param(w http.ResponseWriter, r *http.Request, paramName, displayName string) (int64, bool) {
	str := chi.URLParam(r, paramName)
	if str == "" {
		RespondError(w, http.StatusBadRequest, "Missing "+displayName)
		return 0, false
	}
	value, err := strconv.ParseInt(str, 10, 64)
	if err != nil || value <= 0 {
		RespondError(w, http.StatusBadRequest, "Invalid "+displayName)
		return 0, false
	}
	return value, true
}

// ParseLimitQuery reads the optional limit query parameter, falling back to
// def for missing or invalid values.
func ParseLimitQuery(r *http.Request, def int) int {
	str := r.URL.Query().Get("limit")
	if str == "" {
		return def
	}
	value, err := strconv.Atoi(str)
	if err != nil || value <= 0 {
		return def
	}
	return value
}
