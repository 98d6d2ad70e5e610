// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

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
	"github.com/tomtom215/honeytrace/internal/store"
)

// ErrResourceExists indicates the ARN is already registered as a honey
// resource.
var ErrResourceExists = errors.New("resource already registered")

// Resources owns the honey resource lifecycle. Resources are decoys
// created outside Honeytrace and tracked by ARN; registration is a pure
// store write with no provider or identity pool interplay, which keeps
// the lifecycle a single step with no compensation.
type Resources struct {
	resources *store.ResourceStore
	logger    zerolog.Logger
	now       func() int64
}

// NewResources creates the resource manager over the given store.
func NewResources(s *store.Store) *Resources {
	return &Resources{
		resources: s.Resources(),
		logger:    logging.WithComponent("resources"),
		now:       func() int64 { return time.Now().Unix() },
	}
}

// WithNow overrides the clock. Test helper.
func (m *Resources) WithNow(now func() int64) *Resources {
	m.now = now
	return m
}

// Register records a new honey resource. Fails with ErrResourceExists if
// the ARN is already tracked.
func (m *Resources) Register(ctx context.Context, resourceARN string, attrs models.ResourceAttrs) (*models.HoneyResource, error) {
	active := true
	if attrs.Active != nil {
		active = *attrs.Active
	}
	resource := &models.HoneyResource{
		ResourceARN: resourceARN,
		CreateTime:  m.now(),
		ExpireTime:  models.ClampExpireTime(attrs.ExpireTime),
		Active:      active,
		Location:    models.ClampLocation(attrs.Location),
		Description: models.ClampDescription(attrs.Description),
	}

	if err := m.resources.Insert(ctx, resource); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("resource %s: %w", resourceARN, ErrResourceExists)
		}
		return nil, fmt.Errorf("persist resource: %w", err)
	}

	metrics.ResourcesRegistered.Inc()
	m.logger.Info().
		Str("resource_arn", resource.ResourceARN).
		Msg("registered honey resource")
	return resource, nil
}

// Mutate applies a partial update to a resource. The ARN is immutable.
func (m *Resources) Mutate(ctx context.Context, resourceARN string, patch models.ResourcePatch) (*models.HoneyResource, error) {
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}

	var lastErr error
	for attempt := 0; attempt < mutateRetries; attempt++ {
		resource, err := m.resources.Get(ctx, resourceARN)
		if err != nil {
			return nil, err
		}
		patch.Apply(resource)
		if err := m.resources.Put(ctx, resource); err != nil {
			if errors.Is(err, store.ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return resource, nil
	}
	return nil, fmt.Errorf("mutate resource %s: %w", resourceARN, lastErr)
}

// Deregister removes a resource record. Returns ErrNotFound if absent.
func (m *Resources) Deregister(ctx context.Context, resourceARN string) error {
	if _, err := m.resources.Get(ctx, resourceARN); err != nil {
		return err
	}
	if err := m.resources.Delete(ctx, resourceARN); err != nil {
		return fmt.Errorf("delete resource %s: %w", resourceARN, err)
	}

	metrics.ResourcesDeregistered.Inc()
	m.logger.Info().
		Str("resource_arn", resourceARN).
		Msg("deregistered honey resource")
	return nil
}

// Get loads one resource. Returns ErrNotFound if absent.
func (m *Resources) Get(ctx context.Context, resourceARN string) (*models.HoneyResource, error) {
	return m.resources.Get(ctx, resourceARN)
}

// List returns all resources.
func (m *Resources) List(ctx context.Context) ([]models.HoneyResource, error) {
	return m.resources.List(ctx)
}
