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

// tokenListResponse wraps the token list.
type tokenListResponse struct {
	Tokens []models.HoneyToken `json:"tokens"`
	Count  int                 `json:"count"`
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.registry.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if tokens == nil {
		tokens = []models.HoneyToken{}
	}
	respondJSON(w, http.StatusOK, tokenListResponse{Tokens: tokens, Count: len(tokens)})
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var attrs models.TokenAttrs
	if err := decodeJSON(w, r, &attrs); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, err := s.registry.Generate(r.Context(), attrs)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, token)
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.registry.Get(r.Context(), chi.URLParam(r, "accessKeyID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, token)
}

func (s *Server) handlePatchToken(w http.ResponseWriter, r *http.Request) {
	var patch models.TokenPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, err := s.registry.Mutate(r.Context(), chi.URLParam(r, "accessKeyID"), patch)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, token)
}

func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Revoke(r.Context(), chi.URLParam(r, "accessKeyID")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
