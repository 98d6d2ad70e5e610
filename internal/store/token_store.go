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

// TokenStore persists honeytoken records keyed by access key ID.
type TokenStore struct {
	s *Store
}

// Tokens returns the honeytoken sub-store.
func (s *Store) Tokens() *TokenStore {
	return &TokenStore{s: s}
}

// Get loads one token. Returns ErrNotFound if absent.
func (ts *TokenStore) Get(ctx context.Context, accessKeyID string) (*models.HoneyToken, error) {
	var token models.HoneyToken
	err := ts.s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, tokenKey(accessKeyID), &token)
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Put upserts a token record.
func (ts *TokenStore) Put(ctx context.Context, token *models.HoneyToken) error {
	return ts.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, tokenKey(token.AccessKeyID), token)
	})
}

// Delete removes a token record. Deleting an absent token is a no-op.
func (ts *TokenStore) Delete(ctx context.Context, accessKeyID string) error {
	return ts.s.update(func(txn *badger.Txn) error {
		return txn.Delete(tokenKey(accessKeyID))
	})
}

// List returns all tokens. Pages through the scan internally.
func (ts *TokenStore) List(ctx context.Context) ([]models.HoneyToken, error) {
	var tokens []models.HoneyToken
	err := ts.s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixToken), func(item *badger.Item) (bool, error) {
			var token models.HoneyToken
			if err := item.Value(func(val []byte) error {
				return unmarshalValue(val, &token)
			}); err != nil {
				return false, err
			}
			tokens = append(tokens, token)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
