// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package models

import "strings"

const (
	// MaxLocationLen caps the free-text location attribute.
	MaxLocationLen = 100

	// MaxDescriptionLen caps the free-text description attribute.
	MaxDescriptionLen = 300
)

// HoneyToken is a decoy AWS access key planted to detect unauthorized use.
// The secret access key is stored verbatim: it must be presentable to a
// would-be attacker and is never used for verification.
type HoneyToken struct {
	// AccessKeyID is the provider-assigned access key identifier and the
	// primary key of the token.
	AccessKeyID string `json:"access_key_id"`

	// SecretAccessKey is the provider-issued secret, stored as issued.
	SecretAccessKey string `json:"secret_access_key"`

	// IdentityID references the pooled identity the key is bound to.
	IdentityID string `json:"identity_id"`

	// CreateTime is the creation time in epoch seconds.
	CreateTime int64 `json:"create_time"`

	// ExpireTime is the expiry in epoch seconds; 0 means never.
	ExpireTime int64 `json:"expire_time"`

	// Active gates correlation: inactive tokens never raise events.
	Active bool `json:"active"`

	// Location records where the token was planted.
	Location string `json:"location"`

	// Description is operator free text.
	Description string `json:"description"`

	// Released marks that the identity slot backing this token has been
	// given back. Set in the same transaction as the occupancy decrement
	// during revocation, so a retried revoke never decrements twice.
	Released bool `json:"released,omitempty"`
}

// Expired reports whether the token has a non-zero expiry at or before now.
func (t *HoneyToken) Expired(now int64) bool {
	return t.ExpireTime != 0 && t.ExpireTime <= now
}

// TokenAttrs holds caller-supplied attributes for token creation. Zero
// values fall back to the documented defaults (active, never expiring,
// empty location and description).
type TokenAttrs struct {
	ExpireTime  int64  `json:"expire_time"`
	Active      *bool  `json:"active"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// TokenPatch holds a partial update. Nil fields are left untouched.
type TokenPatch struct {
	ExpireTime  *int64  `json:"expire_time"`
	Active      *bool   `json:"active"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

// ClampExpireTime normalizes an expiry: negative values collapse to 0.
func ClampExpireTime(expire int64) int64 {
	if expire < 0 {
		return 0
	}
	return expire
}

// ClampLocation trims and length-caps a location value.
func ClampLocation(location string) string {
	return clampText(location, MaxLocationLen)
}

// ClampDescription trims and length-caps a description value.
func ClampDescription(description string) string {
	return clampText(description, MaxDescriptionLen)
}

func clampText(s string, max int) string {
	if len(s) > max {
		s = s[:max]
	}
	return strings.TrimSpace(s)
}

// Apply overlays the patch onto the token, touching only present fields.
func (p *TokenPatch) Apply(t *HoneyToken) {
	if p.ExpireTime != nil {
		t.ExpireTime = ClampExpireTime(*p.ExpireTime)
	}
	if p.Active != nil {
		t.Active = *p.Active
	}
	if p.Location != nil {
		t.Location = ClampLocation(*p.Location)
	}
	if p.Description != nil {
		t.Description = ClampDescription(*p.Description)
	}
}

// Empty reports whether the patch carries no fields.
func (p *TokenPatch) Empty() bool {
	return p.ExpireTime == nil && p.Active == nil && p.Location == nil && p.Description == nil
}
