// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package models

// HoneyResource is a decoy cloud resource registered by its ARN. Unlike a
// honeytoken, the resource itself is created outside Honeytrace; the
// record only tracks the decoy so its use can be flagged and its planting
// documented.
type HoneyResource struct {
	// ResourceARN identifies the decoy resource and is the primary key.
	ResourceARN string `json:"resource_arn"`

	// CreateTime is the registration time in epoch seconds.
	CreateTime int64 `json:"create_time"`

	// ExpireTime is the expiry in epoch seconds; 0 means never.
	ExpireTime int64 `json:"expire_time"`

	// Active gates correlation, mirroring the honeytoken flag.
	Active bool `json:"active"`

	// Location records where the resource was planted.
	Location string `json:"location"`

	// Description is operator free text.
	Description string `json:"description"`
}

// Expired reports whether the resource has a non-zero expiry at or before
// now.
func (r *HoneyResource) Expired(now int64) bool {
	return r.ExpireTime != 0 && r.ExpireTime <= now
}

// ResourceAttrs holds caller-supplied attributes for registration. Zero
// values fall back to the same defaults honeytokens use.
type ResourceAttrs struct {
	ExpireTime  int64  `json:"expire_time"`
	Active      *bool  `json:"active"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// ResourcePatch holds a partial update. Nil fields are left untouched.
type ResourcePatch struct {
	ExpireTime  *int64  `json:"expire_time"`
	Active      *bool   `json:"active"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

// Apply overlays the patch onto the resource, touching only present
// fields.
func (p *ResourcePatch) Apply(r *HoneyResource) {
	if p.ExpireTime != nil {
		r.ExpireTime = ClampExpireTime(*p.ExpireTime)
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	if p.Location != nil {
		r.Location = ClampLocation(*p.Location)
	}
	if p.Description != nil {
		r.Description = ClampDescription(*p.Description)
	}
}

// Empty reports whether the patch carries no fields.
func (p *ResourcePatch) Empty() bool {
	return p.ExpireTime == nil && p.Active == nil && p.Location == nil && p.Description == nil
}
