// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package pool manages the shared identities backing honeytokens.
//
// Identities are bin-packed at a capacity of two tokens each: acquisition
// prefers a partially filled identity and only creates a fresh IAM
// principal when every pooled identity is full. The occupancy transition
// is a single conditional update in the store; when concurrent acquirers
// collide, the losers re-query (or create) instead of ever exceeding the
// cap. An identity whose last token is released is destroyed, so an
// occupancy of zero never persists.
package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/honeytrace/internal/logging"
	"github.com/tomtom215/honeytrace/internal/metrics"
	"github.com/tomtom215/honeytrace/internal/models"
	"github.com/tomtom215/honeytrace/internal/provider"
	"github.com/tomtom215/honeytrace/internal/store"
)

// Errors surfaced to callers. Capacity and in-use conditions originate in
// the store's conditional transitions.
var (
	// ErrCapacityExceeded indicates an occupancy increment would exceed
	// the per-identity cap.
	ErrCapacityExceeded = store.ErrCapacityExceeded

	// ErrIdentityInUse indicates a release on an identity whose
	// occupancy is already zero.
	ErrIdentityInUse = store.ErrIdentityInUse

	// ErrContended indicates acquisition kept losing conditional-update
	// races and gave up. Retryable by the caller.
	ErrContended = errors.New("identity pool contended, retry")
)

// acquireRetries bounds the claim-retry loop. Each retry re-queries the
// occupancy index, so a loser of one race can still pack into the
// winner's identity or another partially filled one.
const acquireRetries = 5

// Pool implements identity acquisition and release.
type Pool struct {
	identities *store.IdentityStore
	provider   provider.IdentityProvider
	logger     zerolog.Logger
	now        func() int64
}

// New creates a pool over the given store and identity provider.
func New(s *store.Store, p provider.IdentityProvider) *Pool {
	return &Pool{
		identities: s.Identities(),
		provider:   p,
		logger:     logging.WithComponent("identity-pool"),
		now:        func() int64 { return time.Now().Unix() },
	}
}

// WithNow overrides the clock. Test helper.
func (p *Pool) WithNow(now func() int64) *Pool {
	p.now = now
	return p
}

// Acquire claims a token slot on a pooled identity and returns the
// identity it landed on. Prefers an identity with one token already bound
// (bin packing); creates a fresh provider principal otherwise. The claim
// is an atomic conditional transition; on conflict the loop re-queries
// rather than exceeding the cap.
func (p *Pool) Acquire(ctx context.Context) (*models.Identity, error) {
	for attempt := 0; attempt < acquireRetries; attempt++ {
		identity, err := p.identities.ClaimShared(ctx)
		switch {
		case err == nil:
			p.logger.Debug().
				Str("identity", identity.IdentityID).
				Int("occupancy", identity.Occupancy).
				Msg("packed into existing identity")
			return identity, nil
		case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrCapacityExceeded):
			// Lost the slot race; re-query.
			continue
		case errors.Is(err, store.ErrNotFound):
			identity, err := p.createIdentity(ctx)
			if err != nil {
				if errors.Is(err, store.ErrConflict) {
					continue
				}
				return nil, err
			}
			return identity, nil
		default:
			return nil, fmt.Errorf("claim identity slot: %w", err)
		}
	}
	return nil, ErrContended
}

// createIdentity provisions a fresh principal and inserts it with its
// first slot claimed. Provider-side state is compensated if the insert
// fails, so a principal never exists without a pool record.
func (p *Pool) createIdentity(ctx context.Context) (*models.Identity, error) {
	account, err := p.provider.CallerAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve owner account: %w", err)
	}

	identity := &models.Identity{
		IdentityID:   uuid.New().String(),
		CreateTime:   p.now(),
		OwnerAccount: account,
		Occupancy:    1,
	}

	if err := p.provider.CreateUser(ctx, identity.IdentityID); err != nil {
		return nil, fmt.Errorf("create principal: %w", err)
	}
	if err := p.provider.AddUserToGroup(ctx, identity.IdentityID); err != nil {
		p.compensateProviderUser(ctx, identity.IdentityID, false)
		return nil, fmt.Errorf("attach principal to honey group: %w", err)
	}

	if err := p.identities.InsertClaimed(ctx, identity); err != nil {
		p.compensateProviderUser(ctx, identity.IdentityID, true)
		return nil, err
	}

	metrics.IdentitiesCreated.Inc()
	p.logger.Info().
		Str("identity", identity.IdentityID).
		Str("account", account).
		Msg("created pooled identity")
	return identity, nil
}

// Release unbinds one token from the identity. The last release destroys
// the identity: the store record goes first (in the same transaction as
// the decrement), then the provider principal. Both provider steps accept
// already-deleted state so a retried release converges instead of
// failing.
func (p *Pool) Release(ctx context.Context, identityID string) error {
	destroyed, err := p.identities.Release(ctx, identityID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// A retried release after the record was removed. Finish the
		// provider teardown in case the earlier attempt died part-way
		// through it.
		p.logger.Debug().Str("identity", identityID).Msg("release of absent identity, finishing teardown")
		return p.destroyPrincipal(ctx, identityID, false)
	case errors.Is(err, store.ErrIdentityInUse):
		return fmt.Errorf("identity %s: %w", identityID, ErrIdentityInUse)
	case err != nil:
		return fmt.Errorf("release identity %s: %w", identityID, err)
	}

	if !destroyed {
		return nil
	}
	return p.destroyPrincipal(ctx, identityID, true)
}

// ReleaseBinding unbinds the token from its identity, idempotently per
// credential: the decrement and a released marker on the token record
// share one transaction, so a revocation retried after the release
// completed sees the marker and skips the decrement instead of draining
// a slot that now belongs to another token.
func (p *Pool) ReleaseBinding(ctx context.Context, identityID, accessKeyID string) error {
	destroyed, already, err := p.identities.ReleaseBinding(ctx, accessKeyID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// State already gone from the store; finish the provider
		// teardown in case the earlier attempt died part-way through it.
		p.logger.Debug().Str("identity", identityID).Msg("release of absent binding, finishing teardown")
		return p.destroyPrincipal(ctx, identityID, false)
	case errors.Is(err, store.ErrIdentityInUse):
		return fmt.Errorf("identity %s: %w", identityID, ErrIdentityInUse)
	case err != nil:
		return fmt.Errorf("release binding %s: %w", accessKeyID, err)
	}

	if already {
		// The slot went back on an earlier attempt. If that attempt
		// destroyed the identity record its provider teardown may still
		// be unfinished; a live record means a shared identity that must
		// be left alone.
		if _, err := p.identities.Get(ctx, identityID); errors.Is(err, store.ErrNotFound) {
			return p.destroyPrincipal(ctx, identityID, false)
		} else if err != nil {
			return fmt.Errorf("inspect identity %s: %w", identityID, err)
		}
		return nil
	}

	if !destroyed {
		return nil
	}
	return p.destroyPrincipal(ctx, identityID, true)
}

// destroyPrincipal removes the provider-side principal. Already-deleted
// state is a no-op so retries converge.
func (p *Pool) destroyPrincipal(ctx context.Context, identityID string, count bool) error {
	if err := p.provider.RemoveUserFromGroup(ctx, identityID); err != nil && !errors.Is(err, provider.ErrNotFound) {
		return fmt.Errorf("detach principal %s: %w", identityID, err)
	}
	if err := p.provider.DeleteUser(ctx, identityID); err != nil && !errors.Is(err, provider.ErrNotFound) {
		return fmt.Errorf("delete principal %s: %w", identityID, err)
	}
	if count {
		metrics.IdentitiesDeleted.Inc()
		p.logger.Info().Str("identity", identityID).Msg("destroyed pooled identity")
	}
	return nil
}

// compensateProviderUser tears down a provider principal created earlier
// in a failed acquisition. Failures here are logged, not returned: the
// original error is the one the caller needs.
func (p *Pool) compensateProviderUser(ctx context.Context, username string, inGroup bool) {
	if inGroup {
		if err := p.provider.RemoveUserFromGroup(ctx, username); err != nil && !errors.Is(err, provider.ErrNotFound) {
			p.logger.Error().Err(err).Str("identity", username).Msg("rollback: detach principal failed")
		}
	}
	if err := p.provider.DeleteUser(ctx, username); err != nil && !errors.Is(err, provider.ErrNotFound) {
		p.logger.Error().Err(err).Str("identity", username).Msg("rollback: delete principal failed")
	}
}
