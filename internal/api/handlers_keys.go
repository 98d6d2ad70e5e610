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

// createKeyResponse carries the raw secret alongside the key record.
// This is the only place the secret ever appears.
type createKeyResponse struct {
	Key    *models.APIKey `json:"key"`
	Secret string         `json:"secret"`
}

// keyListResponse wraps the key list.
type keyListResponse struct {
	Keys  []models.APIKey `json:"keys"`
	Count int             `json:"count"`
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var attrs models.APIKeyAttrs
	if err := decodeJSON(w, r, &attrs); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	key, secret, err := s.auth.Generate(r.Context(), attrs)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, createKeyResponse{Key: key, Secret: secret})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.auth.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if keys == nil {
		keys = []models.APIKey{}
	}
	respondJSON(w, http.StatusOK, keyListResponse{Keys: keys, Count: len(keys)})
}

func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.auth.Get(r.Context(), chi.URLParam(r, "keyID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, key)
}

func (s *Server) handlePatchKey(w http.ResponseWriter, r *http.Request) {
	var patch models.APIKeyPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	key, err := s.auth.Mutate(r.Context(), chi.URLParam(r, "keyID"), patch)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, key)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Revoke(r.Context(), chi.URLParam(r, "keyID")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
