// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package registry implements the honeytoken lifecycle over the identity
// pool and the provider. Generation and revocation are multi-step
// operations against two systems of record (the provider and the local
// store); each step has a compensating action so a failure part-way
// through never strands a provider-side key or an identity slot.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/honeytrace/internal/logging"
	"github.com/tomtom215/honeytrace/internal/metrics"
	"github.com/tomtom215/honeytrace/internal/models"
	"github.com/tomtom215/honeytrace/internal/pool"
	"github.com/tomtom215/honeytrace/internal/provider"
	"github.com/tomtom215/honeytrace/internal/store"
)

// ErrNotFound indicates the referenced honeytoken does not exist.
var ErrNotFound = store.ErrNotFound

// ErrEmptyPatch indicates a mutation carrying no fields.
var ErrEmptyPatch = errors.New("patch carries no fields")

// mutateRetries bounds the read-modify-write loop for Mutate under
// concurrent writers.
const mutateRetries = 3

// Registry owns honeytoken creation, mutation, revocation, and reads.
type Registry struct {
	pool     *pool.Pool
	provider provider.IdentityProvider
	tokens   *store.TokenStore
	events   *store.EventStore
	logger   zerolog.Logger
	now      func() int64
}

// New creates a registry over the given pool, provider, and store.
func New(p *pool.Pool, idp provider.IdentityProvider, s *store.Store) *Registry {
	return &Registry{
		pool:     p,
		provider: idp,
		tokens:   s.Tokens(),
		events:   s.Events(),
		logger:   logging.WithComponent("registry"),
		now:      func() int64 { return time.Now().Unix() },
	}
}

// WithNow overrides the clock. Test helper.
func (r *Registry) WithNow(now func() int64) *Registry {
	r.now = now
	return r
}

// Generate mints a honeytoken: claim an identity slot, issue a provider
// access key against it, and persist the record. A provider failure
// releases the slot; a store failure deletes the freshly issued key and
// releases the slot, so the three systems stay consistent.
func (r *Registry) Generate(ctx context.Context, attrs models.TokenAttrs) (*models.HoneyToken, error) {
	identity, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire identity: %w", err)
	}

	key, err := r.provider.CreateAccessKey(ctx, identity.IdentityID)
	if err != nil {
		r.compensateSlot(ctx, identity.IdentityID)
		return nil, fmt.Errorf("issue access key: %w", err)
	}

	active := true
	if attrs.Active != nil {
		active = *attrs.Active
	}
	token := &models.HoneyToken{
		AccessKeyID:     key.AccessKeyID,
		SecretAccessKey: key.SecretAccessKey,
		IdentityID:      identity.IdentityID,
		CreateTime:      r.now(),
		ExpireTime:      models.ClampExpireTime(attrs.ExpireTime),
		Active:          active,
		Location:        models.ClampLocation(attrs.Location),
		Description:     models.ClampDescription(attrs.Description),
	}

	if err := r.tokens.Put(ctx, token); err != nil {
		if derr := r.provider.DeleteAccessKey(ctx, identity.IdentityID, key.AccessKeyID); derr != nil && !errors.Is(derr, provider.ErrNotFound) {
			r.logger.Error().Err(derr).
				Str("access_key_id", key.AccessKeyID).
				Msg("rollback: delete access key failed")
		}
		r.compensateSlot(ctx, identity.IdentityID)
		return nil, fmt.Errorf("persist token: %w", err)
	}

	metrics.TokensCreated.Inc()
	r.logger.Info().
		Str("access_key_id", token.AccessKeyID).
		Str("identity", identity.IdentityID).
		Msg("generated honeytoken")
	return token, nil
}

// Mutate applies a partial update to a token. Only the fields the patch
// carries change; everything identifying the credential is immutable.
func (r *Registry) Mutate(ctx context.Context, accessKeyID string, patch models.TokenPatch) (*models.HoneyToken, error) {
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}

	var lastErr error
	for attempt := 0; attempt < mutateRetries; attempt++ {
		token, err := r.tokens.Get(ctx, accessKeyID)
		if err != nil {
			return nil, err
		}
		patch.Apply(token)
		if err := r.tokens.Put(ctx, token); err != nil {
			if errors.Is(err, store.ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return token, nil
	}
	return nil, fmt.Errorf("mutate token %s: %w", accessKeyID, lastErr)
}

// Revoke tears a token down: provider key first, then the identity slot,
// then correlated events, then the record. Ordered so the externally
// usable credential dies before any local state does; every step accepts
// already-deleted state, so a failed revoke can be retried to completion.
// The slot release is checkpointed on the token record, so a retry after
// a completed release never drains the slot a sibling token holds.
func (r *Registry) Revoke(ctx context.Context, accessKeyID string) error {
	token, err := r.tokens.Get(ctx, accessKeyID)
	if err != nil {
		return err
	}

	if err := r.provider.DeleteAccessKey(ctx, token.IdentityID, token.AccessKeyID); err != nil && !errors.Is(err, provider.ErrNotFound) {
		return fmt.Errorf("delete access key %s: %w", accessKeyID, err)
	}

	if err := r.pool.ReleaseBinding(ctx, token.IdentityID, token.AccessKeyID); err != nil {
		return fmt.Errorf("release identity %s: %w", token.IdentityID, err)
	}

	purged, err := r.events.PurgeForToken(ctx, accessKeyID)
	if err != nil {
		return fmt.Errorf("purge events for %s: %w", accessKeyID, err)
	}

	if err := r.tokens.Delete(ctx, accessKeyID); err != nil {
		return fmt.Errorf("delete token %s: %w", accessKeyID, err)
	}

	metrics.TokensRevoked.Inc()
	r.logger.Info().
		Str("access_key_id", accessKeyID).
		Int("events_purged", purged).
		Msg("revoked honeytoken")
	return nil
}

// Get loads one token. Returns ErrNotFound if absent.
func (r *Registry) Get(ctx context.Context, accessKeyID string) (*models.HoneyToken, error) {
	return r.tokens.Get(ctx, accessKeyID)
}

// List returns all tokens.
func (r *Registry) List(ctx context.Context) ([]models.HoneyToken, error) {
	return r.tokens.List(ctx)
}

// compensateSlot releases an identity slot acquired by a generation that
// failed later on. Release destroys an identity whose only slot this
// was. Failures are logged, not returned.
func (r *Registry) compensateSlot(ctx context.Context, identityID string) {
	if err := r.pool.Release(ctx, identityID); err != nil {
		r.logger.Error().Err(err).
			Str("identity", identityID).
			Msg("rollback: release identity slot failed")
	}
}
