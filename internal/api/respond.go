// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/honeytrace/internal/auth"
	"github.com/tomtom215/honeytrace/internal/dedup"
	"github.com/tomtom215/honeytrace/internal/logging"
	"github.com/tomtom215/honeytrace/internal/pool"
	"github.com/tomtom215/honeytrace/internal/registry"
	"github.com/tomtom215/honeytrace/internal/store"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("encode response")
	}
}

// respondError writes the uniform error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondDomainError maps domain errors onto the status taxonomy:
// validation 400, not found 404, conflict 409, capacity 429, everything
// else 500.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, registry.ErrEmptyPatch), errors.Is(err, auth.ErrEmptyPatch):
		respondError(w, http.StatusBadRequest, "patch carries no fields")
	case errors.Is(err, registry.ErrResourceExists):
		respondError(w, http.StatusConflict, "resource already registered")
	case errors.Is(err, pool.ErrCapacityExceeded):
		respondError(w, http.StatusTooManyRequests, "identity pool at capacity")
	case errors.Is(err, pool.ErrContended), errors.Is(err, dedup.ErrContended), errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, "conflicting concurrent update, retry")
	default:
		logging.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// maxRequestBody caps mutating request bodies. Management payloads are a
// handful of short fields; anything bigger is noise or abuse.
const maxRequestBody = 1 << 20

// decodeJSON parses a request body, rejecting unknown fields and bodies
// over maxRequestBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
