// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/honeytrace/internal/auth"
	"github.com/tomtom215/honeytrace/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// testAlertRequest describes the synthetic alert to publish.
type testAlertRequest struct {
	AccessKeyID string `json:"access_key_id" validate:"required"`
}

// handleTestAlert publishes a synthetic alert for the given token so
// operators can verify channel wiring end to end.
func (s *Server) handleTestAlert(w http.ResponseWriter, r *http.Request) {
	var req testAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "access_key_id is required")
		return
	}

	token, err := s.registry.Get(r.Context(), req.AccessKeyID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	now := time.Now().Unix()
	am := &models.AlertMessage{
		Event: models.Event{
			EventID:         "test-" + uuid.New().String(),
			AccessKeyID:     token.AccessKeyID,
			EventTime:       now,
			EventName:       "TestAlert",
			SourceIPAddress: r.RemoteAddr,
			UserAgent:       r.UserAgent(),
			Alerted:         true,
		},
		Token: *token,
	}
	if err := s.alerts.PublishAlert(r.Context(), am); err != nil {
		respondError(w, http.StatusBadGateway, "alert publish failed")
		return
	}

	caller := auth.Caller(r.Context())
	s.logger.Info().
		Str("access_key_id", token.AccessKeyID).
		Str("key_id", caller.KeyID).
		Msg("published test alert")
	respondJSON(w, http.StatusOK, map[string]string{"event_id": am.Event.EventID})
}
