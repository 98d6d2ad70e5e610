// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/honeytrace/internal/models"
	"github.com/tomtom215/honeytrace/internal/store"
)

func setupManager(t *testing.T, provisionKey string) *Manager {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewManager(s, provisionKey).WithNow(func() int64 { return 1700000000 })
}

func TestGenerateAndVerify(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t, "")

	key, secret, err := m.Generate(ctx, models.APIKeyAttrs{Admin: true, Description: "ops"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if secret == "" {
		t.Fatal("no raw secret returned")
	}
	if key.SecretHash == "" {
		t.Fatal("no hash stored")
	}
	if key.SecretHash == secret {
		t.Fatal("secret stored verbatim")
	}

	verified, err := m.Verify(ctx, key.KeyID, secret)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.KeyID != key.KeyID || !verified.Admin {
		t.Errorf("verified key = %+v", verified)
	}
}

func TestVerifyRejections(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t, "")

	key, secret, err := m.Generate(ctx, models.APIKeyAttrs{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tests := []struct {
		name   string
		keyID  string
		secret string
	}{
		{"empty secret", key.KeyID, ""},
		{"wrong secret", key.KeyID, "nope"},
		{"secret prefix", key.KeyID, secret[:len(secret)-4]},
		{"secret with suffix", key.KeyID, secret + "AAAA"},
		{"unknown key id", "does-not-exist", secret},
		{"empty key id", "", secret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(ctx, tt.keyID, tt.secret); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestVerifyInactiveAndExpired(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t, "")

	inactive := false
	key, secret, err := m.Generate(ctx, models.APIKeyAttrs{Active: &inactive})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := m.Verify(ctx, key.KeyID, secret); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("inactive key verified: %v", err)
	}

	expired, secret2, err := m.Generate(ctx, models.APIKeyAttrs{ExpireTime: 1600000000})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := m.Verify(ctx, expired.KeyID, secret2); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expired key verified: %v", err)
	}

	// Reactivating restores access.
	active := true
	if _, err := m.Mutate(ctx, key.KeyID, models.APIKeyPatch{Active: &active}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if _, err := m.Verify(ctx, key.KeyID, secret); err != nil {
		t.Errorf("reactivated key rejected: %v", err)
	}
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t, "")

	key, secret, err := m.Generate(ctx, models.APIKeyAttrs{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := m.Revoke(ctx, key.KeyID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := m.Verify(ctx, key.KeyID, secret); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("revoked key verified: %v", err)
	}
	if err := m.Revoke(ctx, key.KeyID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second revoke err = %v, want ErrNotFound", err)
	}
}

func TestHashSecretSaltsDiffer(t *testing.T) {
	first, err := hashSecret("same-secret")
	if err != nil {
		t.Fatalf("hashSecret: %v", err)
	}
	second, err := hashSecret("same-secret")
	if err != nil {
		t.Fatalf("hashSecret: %v", err)
	}
	if first == second {
		t.Error("two hashes of one secret are identical, salt not random")
	}
	if !verifySecret("same-secret", first) || !verifySecret("same-secret", second) {
		t.Error("hash does not verify against its own secret")
	}
}

func TestVerifySecretMalformedHash(t *testing.T) {
	if verifySecret("anything", "not-base64!!!") {
		t.Error("malformed hash verified")
	}
	if verifySecret("anything", "c2hvcnQ=") {
		t.Error("truncated hash verified")
	}
}

func TestAuthenticateMiddleware(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t, "bootstrap-secret")

	key, secret, err := m.Generate(ctx, models.APIKeyAttrs{Admin: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var caller *models.APIKey
	handler := m.Authenticate(m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = Caller(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	req.Header.Set(HeaderKeyID, key.KeyID)
	req.Header.Set(HeaderSecretID, secret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if caller == nil || caller.KeyID != key.KeyID {
		t.Errorf("caller = %+v", caller)
	}

	// Missing credentials.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/keys", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAdminForbidsPlainKeys(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t, "")

	key, secret, err := m.Generate(ctx, models.APIKeyAttrs{Admin: false})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	handler := m.Authenticate(m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	req.Header.Set(HeaderKeyID, key.KeyID)
	req.Header.Set(HeaderSecretID, secret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestProvisionBootstrap(t *testing.T) {
	m := setupManager(t, "bootstrap-secret")

	handler := m.AuthenticateOrProvision(m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest(http.MethodPost, "/keys", nil)
	req.Header.Set(HeaderProvisionKey, "bootstrap-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}

	// Wrong provision key falls through to key auth and fails.
	req = httptest.NewRequest(http.MethodPost, "/keys", nil)
	req.Header.Set(HeaderProvisionKey, "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	// Provision disabled entirely when unset.
	disabled := setupManager(t, "")
	handler = disabled.AuthenticateOrProvision(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	req = httptest.NewRequest(http.MethodPost, "/keys", nil)
	req.Header.Set(HeaderProvisionKey, "")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
