// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package models defines the persistent record types shared across
// Honeytrace: IAM identities, honeytokens, correlated events, and
// management API keys.
package models

// MaxTokensPerIdentity is the occupancy cap for a pooled identity. Each
// underlying IAM user backs at most this many honeytokens; keeping it at
// two halves the number of live principals without letting a single
// compromise expose a large token population.
const MaxTokensPerIdentity = 2

// Identity is a reusable IAM principal backing up to MaxTokensPerIdentity
// honeytokens. Identities are created on demand by the pool and destroyed
// when their last token is revoked; an identity with Occupancy 0 never
// persists.
type Identity struct {
	// IdentityID is the generated IAM username (a UUID).
	IdentityID string `json:"identity_id"`

	// CreateTime is the creation time in epoch seconds.
	CreateTime int64 `json:"create_time"`

	// OwnerAccount is the AWS account ID that owns the principal.
	OwnerAccount string `json:"owner_account"`

	// Occupancy is the number of honeytokens bound to this identity,
	// always in [0, MaxTokensPerIdentity].
	Occupancy int `json:"occupancy"`
}
