// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/honeytrace/internal/models"
)

// eventListResponse wraps a credential's event history.
type eventListResponse struct {
	Events []models.Event `json:"events"`
	Count  int            `json:"count"`
}

func (s *Server) handleListTokenEvents(w http.ResponseWriter, r *http.Request) {
	accessKeyID := chi.URLParam(r, "accessKeyID")

	// A 404 for unknown tokens, not an empty history.
	if _, err := s.registry.Get(r.Context(), accessKeyID); err != nil {
		respondDomainError(w, err)
		return
	}

	events, err := s.events.ListForToken(r.Context(), accessKeyID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	respondJSON(w, http.StatusOK, eventListResponse{Events: events, Count: len(events)})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.Get(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}
