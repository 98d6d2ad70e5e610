// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/honeytrace/internal/models"
)

// APIKeyStore persists management API keys keyed by key ID.
type APIKeyStore struct {
	s *Store
}

// APIKeys returns the management-key sub-store.
func (s *Store) APIKeys() *APIKeyStore {
	return &APIKeyStore{s: s}
}

// Get loads one key. Returns ErrNotFound if absent.
func (ks *APIKeyStore) Get(ctx context.Context, keyID string) (*models.APIKey, error) {
	var key apiKeyRecord
	err := ks.s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, apiKeyKey(keyID), &key)
	})
	if err != nil {
		return nil, err
	}
	return key.toModel(), nil
}

// Put upserts a key record.
func (ks *APIKeyStore) Put(ctx context.Context, key *models.APIKey) error {
	return ks.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, apiKeyKey(key.KeyID), newAPIKeyRecord(key))
	})
}

// Delete removes a key record. Deleting an absent key is a no-op.
func (ks *APIKeyStore) Delete(ctx context.Context, keyID string) error {
	return ks.s.update(func(txn *badger.Txn) error {
		return txn.Delete(apiKeyKey(keyID))
	})
}

// List returns all keys. Pages through the scan internally.
func (ks *APIKeyStore) List(ctx context.Context) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := ks.s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixAPIKey), func(item *badger.Item) (bool, error) {
			var key apiKeyRecord
			if err := item.Value(func(val []byte) error {
				return unmarshalValue(val, &key)
			}); err != nil {
				return false, err
			}
			keys = append(keys, *key.toModel())
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// apiKeyRecord is the storage shape for an API key. models.APIKey hides
// the secret hash from JSON responses, so persistence needs its own
// serialization with the hash included.
type apiKeyRecord struct {
	KeyID       string `json:"key_id"`
	SecretHash  string `json:"secret_hash"`
	CreateTime  int64  `json:"create_time"`
	ExpireTime  int64  `json:"expire_time"`
	Active      bool   `json:"active"`
	Admin       bool   `json:"admin"`
	Description string `json:"description"`
}

func newAPIKeyRecord(k *models.APIKey) *apiKeyRecord {
	return &apiKeyRecord{
		KeyID:       k.KeyID,
		SecretHash:  k.SecretHash,
		CreateTime:  k.CreateTime,
		ExpireTime:  k.ExpireTime,
		Active:      k.Active,
		Admin:       k.Admin,
		Description: k.Description,
	}
}

func (r *apiKeyRecord) toModel() *models.APIKey {
	return &models.APIKey{
		KeyID:       r.KeyID,
		SecretHash:  r.SecretHash,
		CreateTime:  r.CreateTime,
		ExpireTime:  r.ExpireTime,
		Active:      r.Active,
		Admin:       r.Admin,
		Description: r.Description,
	}
}
