// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package auth

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/honeytrace/internal/models"
)

// Request headers carrying management credentials.
const (
	HeaderKeyID        = "X-Key-ID"
	HeaderSecretID     = "X-Secret-ID"
	HeaderProvisionKey = "X-Provision-Key"
)

type contextKey struct{ name string }

var callerContextKey = &contextKey{"auth-caller"}

// Caller returns the authenticated key for the request, or nil outside
// an authenticated route.
func Caller(ctx context.Context) *models.APIKey {
	key, _ := ctx.Value(callerContextKey).(*models.APIKey)
	return key
}

func withCaller(ctx context.Context, key *models.APIKey) context.Context {
	return context.WithValue(ctx, callerContextKey, key)
}

// Authenticate verifies the key ID and secret headers and stores the
// caller in the request context. 401 on any failure.
func (m *Manager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := m.Verify(r.Context(), r.Header.Get(HeaderKeyID), r.Header.Get(HeaderSecretID))
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), key)))
	})
}

// AuthenticateOrProvision is Authenticate plus the bootstrap path: a
// valid X-Provision-Key stands in for an admin key. Applied only to key
// creation, so the first admin key can be minted on a fresh install.
func (m *Manager) AuthenticateOrProvision(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.VerifyProvision(r.Header.Get(HeaderProvisionKey)) {
			caller := &models.APIKey{KeyID: "provision", Active: true, Admin: true}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
			return
		}
		m.Authenticate(next).ServeHTTP(w, r)
	})
}

// RequireAdmin gates a route on the caller's admin flag. 403 without it.
// Must run inside Authenticate.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := Caller(r.Context())
		if caller == nil || !caller.Admin {
			writeAuthError(w, http.StatusForbidden, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
