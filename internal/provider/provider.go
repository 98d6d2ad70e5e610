// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package provider abstracts the cloud identity provider behind the
// honeytoken pool: principal lifecycle, group membership, and access key
// issuance. The production implementation targets AWS IAM; tests use an
// in-memory fake.
package provider

import (
	"context"
	"errors"
)

// ErrNotFound indicates the principal or access key does not exist at the
// provider. Deletion paths treat it as an already-completed step.
var ErrNotFound = errors.New("provider: entity not found")

// AccessKey is a provider-issued credential pair. The secret is shown to
// the operator (and any attacker who finds the planted token) and is
// stored verbatim; it is never used for verification.
type AccessKey struct {
	AccessKeyID     string
	SecretAccessKey string
}

// IdentityProvider is the provider surface Honeytrace depends on.
// Implementations must be safe for concurrent use; clients are
// constructed once per process and shared.
type IdentityProvider interface {
	// CreateUser creates the underlying principal, tagged as a honey
	// user.
	CreateUser(ctx context.Context, username string) error

	// DeleteUser removes the principal. Returns ErrNotFound if it is
	// already gone.
	DeleteUser(ctx context.Context, username string) error

	// AddUserToGroup attaches the principal to the honey-user group
	// whose policy denies everything it can.
	AddUserToGroup(ctx context.Context, username string) error

	// RemoveUserFromGroup detaches the principal from the honey-user
	// group. Returns ErrNotFound if the membership is already gone.
	RemoveUserFromGroup(ctx context.Context, username string) error

	// CreateAccessKey issues a new access key for the principal.
	CreateAccessKey(ctx context.Context, username string) (*AccessKey, error)

	// DeleteAccessKey revokes an access key. Returns ErrNotFound if it
	// is already gone.
	DeleteAccessKey(ctx context.Context, username, accessKeyID string) error

	// CallerAccount returns the provider account ID the service runs in.
	CallerAccount(ctx context.Context) (string, error)
}
