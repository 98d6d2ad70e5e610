// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package auth manages the keys that authenticate management API callers
// and the middleware that enforces them. Secrets are issued once and
// verified against a salted PBKDF2 hash; the raw secret is never stored.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/honeytrace/internal/logging"
	"github.com/tomtom215/honeytrace/internal/models"
	"github.com/tomtom215/honeytrace/internal/store"
)

// Sentinel errors for the API boundary.
var (
	// ErrNotFound indicates the referenced key does not exist.
	ErrNotFound = store.ErrNotFound

	// ErrUnauthorized indicates the credentials failed verification.
	// Deliberately uniform across missing key, bad secret, inactive,
	// and expired, so responses don't enumerate key IDs.
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrForbidden indicates a valid key without the admin flag touched
	// a key-management operation.
	ErrForbidden = errors.New("admin privileges required")

	// ErrEmptyPatch indicates a mutation carrying no fields.
	ErrEmptyPatch = errors.New("patch carries no fields")
)

// Manager owns management key lifecycle and verification.
type Manager struct {
	keys         *store.APIKeyStore
	provisionKey string
	logger       zerolog.Logger
	now          func() int64
}

// NewManager creates a manager over the store. provisionKey is the
// bootstrap secret that may stand in for an admin key on key creation;
// empty disables bootstrap.
func NewManager(s *store.Store, provisionKey string) *Manager {
	return &Manager{
		keys:         s.APIKeys(),
		provisionKey: provisionKey,
		logger:       logging.WithComponent("auth"),
		now:          func() int64 { return time.Now().Unix() },
	}
}

// WithNow overrides the clock. Test helper.
func (m *Manager) WithNow(now func() int64) *Manager {
	m.now = now
	return m
}

// Generate mints a management key and returns it with the raw secret.
// The secret is shown exactly once; only its hash persists.
func (m *Manager) Generate(ctx context.Context, attrs models.APIKeyAttrs) (*models.APIKey, string, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := hashSecret(secret)
	if err != nil {
		return nil, "", err
	}

	active := true
	if attrs.Active != nil {
		active = *attrs.Active
	}
	key := &models.APIKey{
		KeyID:       uuid.New().String(),
		SecretHash:  hash,
		CreateTime:  m.now(),
		ExpireTime:  models.ClampExpireTime(attrs.ExpireTime),
		Active:      active,
		Admin:       attrs.Admin,
		Description: models.ClampKeyDescription(attrs.Description),
	}
	if err := m.keys.Put(ctx, key); err != nil {
		return nil, "", fmt.Errorf("persist key: %w", err)
	}

	m.logger.Info().
		Str("key_id", key.KeyID).
		Bool("admin", key.Admin).
		Msg("generated management key")
	return key, secret, nil
}

// Verify authenticates a key ID and secret pair. Fails uniformly with
// ErrUnauthorized for unknown, inactive, and expired keys and for
// secrets that don't match, empty ones included.
func (m *Manager) Verify(ctx context.Context, keyID, secret string) (*models.APIKey, error) {
	if keyID == "" || secret == "" {
		return nil, ErrUnauthorized
	}
	key, err := m.keys.Get(ctx, keyID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", keyID, err)
	}
	if !key.Active || key.Expired(m.now()) {
		return nil, ErrUnauthorized
	}
	if !verifySecret(secret, key.SecretHash) {
		return nil, ErrUnauthorized
	}
	return key, nil
}

// VerifyProvision reports whether the presented provision key matches
// the configured bootstrap secret.
func (m *Manager) VerifyProvision(presented string) bool {
	if m.provisionKey == "" || presented == "" {
		return false
	}
	return verifyProvision(presented, m.provisionKey)
}

// Mutate applies a partial update to a key.
func (m *Manager) Mutate(ctx context.Context, keyID string, patch models.APIKeyPatch) (*models.APIKey, error) {
	if patch.ExpireTime == nil && patch.Active == nil && patch.Admin == nil && patch.Description == nil {
		return nil, ErrEmptyPatch
	}
	key, err := m.keys.Get(ctx, keyID)
	if err != nil {
		return nil, err
	}
	patch.Apply(key)
	if err := m.keys.Put(ctx, key); err != nil {
		return nil, fmt.Errorf("persist key %s: %w", keyID, err)
	}
	return key, nil
}

// Revoke deletes a key. NotFound if absent.
func (m *Manager) Revoke(ctx context.Context, keyID string) error {
	if _, err := m.keys.Get(ctx, keyID); err != nil {
		return err
	}
	if err := m.keys.Delete(ctx, keyID); err != nil {
		return fmt.Errorf("delete key %s: %w", keyID, err)
	}
	m.logger.Info().Str("key_id", keyID).Msg("revoked management key")
	return nil
}

// Get loads one key. Returns ErrNotFound if absent.
func (m *Manager) Get(ctx context.Context, keyID string) (*models.APIKey, error) {
	return m.keys.Get(ctx, keyID)
}

// List returns all keys.
func (m *Manager) List(ctx context.Context) ([]models.APIKey, error) {
	return m.keys.List(ctx)
}
