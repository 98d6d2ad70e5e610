// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/honeytrace/internal/models"
)

// ResourceStore persists honey resource records keyed by ARN.
type ResourceStore struct {
	s *Store
}

// Resources returns the honey resource sub-store.
func (s *Store) Resources() *ResourceStore {
	return &ResourceStore{s: s}
}

// Get loads one resource. Returns ErrNotFound if absent.
func (rs *ResourceStore) Get(ctx context.Context, resourceARN string) (*models.HoneyResource, error) {
	var resource models.HoneyResource
	err := rs.s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, resourceKey(resourceARN), &resource)
	})
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

// Insert stores a new resource record. Fails with ErrConflict if the ARN
// is already registered.
func (rs *ResourceStore) Insert(ctx context.Context, resource *models.HoneyResource) error {
	return rs.s.update(func(txn *badger.Txn) error {
		switch _, err := txn.Get(resourceKey(resource.ResourceARN)); {
		case err == nil:
			return fmt.Errorf("resource %s already registered: %w", resource.ResourceARN, ErrConflict)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return setJSON(txn, resourceKey(resource.ResourceARN), resource)
	})
}

// Put upserts a resource record.
func (rs *ResourceStore) Put(ctx context.Context, resource *models.HoneyResource) error {
	return rs.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, resourceKey(resource.ResourceARN), resource)
	})
}

// Delete removes a resource record. Deleting an absent resource is a
// no-op.
func (rs *ResourceStore) Delete(ctx context.Context, resourceARN string) error {
	return rs.s.update(func(txn *badger.Txn) error {
		return txn.Delete(resourceKey(resourceARN))
	})
}

// List returns all resources.
func (rs *ResourceStore) List(ctx context.Context) ([]models.HoneyResource, error) {
	var resources []models.HoneyResource
	err := rs.s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixResource), func(item *badger.Item) (bool, error) {
			var resource models.HoneyResource
			if err := item.Value(func(val []byte) error {
				return unmarshalValue(val, &resource)
			}); err != nil {
				return false, err
			}
			resources = append(resources, resource)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return resources, nil
}
