// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package api

import (
	"net/http"

	"github.com/tomtom215/honeytrace/internal/models"
)

// Resource endpoints address records by ARN carried in the body (or, for
// reads, a query parameter) rather than the path: ARNs contain ':' and
// '/', which path routing mangles.

// resourceCreateRequest registers a honey resource.
type resourceCreateRequest struct {
	ResourceARN string `json:"resource_arn" validate:"required"`
	ExpireTime  int64  `json:"expire_time"`
	Active      *bool  `json:"active"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// resourcePatchRequest partially updates a honey resource.
type resourcePatchRequest struct {
	ResourceARN string  `json:"resource_arn" validate:"required"`
	ExpireTime  *int64  `json:"expire_time"`
	Active      *bool   `json:"active"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

// resourceDeleteRequest deregisters a honey resource.
type resourceDeleteRequest struct {
	ResourceARN string `json:"resource_arn" validate:"required"`
}

// resourceListResponse wraps the resource list.
type resourceListResponse struct {
	Resources []models.HoneyResource `json:"resources"`
	Count     int                    `json:"count"`
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	if arn := r.URL.Query().Get("resource_arn"); arn != "" {
		resource, err := s.resources.Get(r.Context(), arn)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, resource)
		return
	}

	resources, err := s.resources.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if resources == nil {
		resources = []models.HoneyResource{}
	}
	respondJSON(w, http.StatusOK, resourceListResponse{Resources: resources, Count: len(resources)})
}

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var req resourceCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "resource_arn is required")
		return
	}

	attrs := models.ResourceAttrs{
		ExpireTime:  req.ExpireTime,
		Active:      req.Active,
		Location:    req.Location,
		Description: req.Description,
	}
	resource, err := s.resources.Register(r.Context(), req.ResourceARN, attrs)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resource)
}

func (s *Server) handlePatchResource(w http.ResponseWriter, r *http.Request) {
	var req resourcePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "resource_arn is required")
		return
	}

	patch := models.ResourcePatch{
		ExpireTime:  req.ExpireTime,
		Active:      req.Active,
		Location:    req.Location,
		Description: req.Description,
	}
	resource, err := s.resources.Mutate(r.Context(), req.ResourceARN, patch)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resource)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	var req resourceDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "resource_arn is required")
		return
	}

	if err := s.resources.Deregister(r.Context(), req.ResourceARN); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
