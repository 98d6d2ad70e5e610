// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package models

// MaxKeyDescriptionLen caps the management key description.
const MaxKeyDescriptionLen = 100

// APIKey authenticates management API callers. The raw secret is never
// stored; SecretHash holds base64(salt || PBKDF2(secret)) and is the only
// verification material.
type APIKey struct {
	// KeyID is the generated key identifier (a UUID).
	KeyID string `json:"key_id"`

	// SecretHash is base64(salt || derived hash). Excluded from API
	// responses.
	SecretHash string `json:"-"`

	// CreateTime is the creation time in epoch seconds.
	CreateTime int64 `json:"create_time"`

	// ExpireTime is the expiry in epoch seconds; 0 means never.
	ExpireTime int64 `json:"expire_time"`

	// Active gates authentication.
	Active bool `json:"active"`

	// Admin grants access to key management endpoints.
	Admin bool `json:"admin"`

	// Description is operator free text.
	Description string `json:"description"`
}

// Expired reports whether the key has a non-zero expiry at or before now.
func (k *APIKey) Expired(now int64) bool {
	return k.ExpireTime != 0 && k.ExpireTime <= now
}

// APIKeyAttrs holds caller-supplied attributes for key creation.
type APIKeyAttrs struct {
	ExpireTime  int64  `json:"expire_time"`
	Active      *bool  `json:"active"`
	Admin       bool   `json:"admin"`
	Description string `json:"description"`
}

// APIKeyPatch holds a partial update. Nil fields are left untouched.
type APIKeyPatch struct {
	ExpireTime  *int64  `json:"expire_time"`
	Active      *bool   `json:"active"`
	Admin       *bool   `json:"admin"`
	Description *string `json:"description"`
}

// ClampKeyDescription trims and length-caps a key description.
func ClampKeyDescription(description string) string {
	return clampText(description, MaxKeyDescriptionLen)
}

// Apply overlays the patch onto the key, touching only present fields.
func (p *APIKeyPatch) Apply(k *APIKey) {
	if p.ExpireTime != nil {
		k.ExpireTime = ClampExpireTime(*p.ExpireTime)
	}
	if p.Active != nil {
		k.Active = *p.Active
	}
	if p.Admin != nil {
		k.Admin = *p.Admin
	}
	if p.Description != nil {
		k.Description = ClampKeyDescription(*p.Description)
	}
}
