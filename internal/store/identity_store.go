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

// IdentityStore persists pooled identities and their occupancy index.
// Occupancy transitions are conditional updates inside single serializable
// transactions; concurrent claimers of the same slot get ErrConflict and
// retry at the pool layer.
type IdentityStore struct {
	s *Store
}

// Identities returns the identity sub-store.
func (s *Store) Identities() *IdentityStore {
	return &IdentityStore{s: s}
}

// Get loads one identity. Returns ErrNotFound if absent.
func (is *IdentityStore) Get(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	err := is.s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, identityKey(id), &identity)
	})
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// List returns all identities. Pages through the scan internally.
func (is *IdentityStore) List(ctx context.Context) ([]models.Identity, error) {
	var identities []models.Identity
	err := is.s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixIdentity), func(item *badger.Item) (bool, error) {
			var identity models.Identity
			if err := item.Value(func(val []byte) error {
				return unmarshalValue(val, &identity)
			}); err != nil {
				return false, err
			}
			identities = append(identities, identity)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return identities, nil
}

// InsertClaimed stores a freshly created identity with its first slot
// already claimed (occupancy 1). Fails with ErrConflict if the identity
// already exists; an occupancy-zero identity never reaches the store.
func (is *IdentityStore) InsertClaimed(ctx context.Context, identity *models.Identity) error {
	if identity.Occupancy != 1 {
		return fmt.Errorf("insert identity %s: occupancy %d, want 1", identity.IdentityID, identity.Occupancy)
	}
	return is.s.update(func(txn *badger.Txn) error {
		switch _, err := txn.Get(identityKey(identity.IdentityID)); {
		case err == nil:
			return fmt.Errorf("identity %s already exists: %w", identity.IdentityID, ErrConflict)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return writeIdentity(txn, identity)
	})
}

// ClaimShared finds an identity with exactly one free slot (occupancy 1)
// and atomically increments it to 2. Returns ErrNotFound when no
// partially filled identity exists, ErrConflict when a concurrent claim
// won the race, and ErrCapacityExceeded if the conditioned check trips.
func (is *IdentityStore) ClaimShared(ctx context.Context) (*models.Identity, error) {
	var claimed models.Identity
	err := is.s.update(func(txn *badger.Txn) error {
		var candidateID string
		err := scanPrefix(txn, identityOccPrefix(1), func(item *badger.Item) (bool, error) {
			_, id, err := splitOccKey(item.Key())
			if err != nil {
				return false, err
			}
			candidateID = id
			return false, nil
		})
		if err != nil {
			return err
		}
		if candidateID == "" {
			return ErrNotFound
		}

		var identity models.Identity
		if err := getJSON(txn, identityKey(candidateID), &identity); err != nil {
			return err
		}
		// Conditioned increment: the index said occupancy 1, but the
		// record is authoritative.
		if identity.Occupancy >= models.MaxTokensPerIdentity {
			return fmt.Errorf("identity %s: %w", identity.IdentityID, ErrCapacityExceeded)
		}

		if err := txn.Delete(identityOccKey(identity.Occupancy, identity.IdentityID)); err != nil {
			return err
		}
		identity.Occupancy++
		if err := writeIdentity(txn, &identity); err != nil {
			return err
		}
		claimed = identity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// Release decrements occupancy. When the occupancy reaches zero the
// record and its index entry are removed in the same transaction and
// destroyed=true is returned so the pool can tear down the provider-side
// principal. Returns ErrNotFound for unknown identities and
// ErrIdentityInUse when occupancy is already zero.
func (is *IdentityStore) Release(ctx context.Context, id string) (destroyed bool, err error) {
	err = is.s.update(func(txn *badger.Txn) error {
		var identity models.Identity
		if err := getJSON(txn, identityKey(id), &identity); err != nil {
			return err
		}
		if identity.Occupancy <= 0 {
			return fmt.Errorf("identity %s: %w", id, ErrIdentityInUse)
		}

		if err := txn.Delete(identityOccKey(identity.Occupancy, identity.IdentityID)); err != nil {
			return err
		}
		identity.Occupancy--

		if identity.Occupancy == 0 {
			destroyed = true
			return txn.Delete(identityKey(identity.IdentityID))
		}
		return writeIdentity(txn, &identity)
	})
	if err != nil {
		return false, err
	}
	return destroyed, nil
}

// ReleaseBinding decrements occupancy for the identity backing the given
// token and marks the token released, in one transaction. A token already
// marked released makes the call a no-op (already=true), which is what
// keeps a retried revocation from decrementing a second time and tearing
// down an identity that still backs another token. Returns destroyed=true
// when the occupancy reached zero and the identity record was removed.
func (is *IdentityStore) ReleaseBinding(ctx context.Context, accessKeyID string) (destroyed, already bool, err error) {
	err = is.s.update(func(txn *badger.Txn) error {
		var token models.HoneyToken
		if err := getJSON(txn, tokenKey(accessKeyID), &token); err != nil {
			return err
		}
		if token.Released {
			already = true
			return nil
		}

		var identity models.Identity
		if err := getJSON(txn, identityKey(token.IdentityID), &identity); err != nil {
			return err
		}
		if identity.Occupancy <= 0 {
			return fmt.Errorf("identity %s: %w", token.IdentityID, ErrIdentityInUse)
		}

		if err := txn.Delete(identityOccKey(identity.Occupancy, identity.IdentityID)); err != nil {
			return err
		}
		identity.Occupancy--

		token.Released = true
		if err := setJSON(txn, tokenKey(accessKeyID), &token); err != nil {
			return err
		}

		if identity.Occupancy == 0 {
			destroyed = true
			return txn.Delete(identityKey(identity.IdentityID))
		}
		return writeIdentity(txn, &identity)
	})
	if err != nil {
		return false, false, err
	}
	return destroyed, already, nil
}

// writeIdentity stores the record and its occupancy index entry.
func writeIdentity(txn *badger.Txn, identity *models.Identity) error {
	if err := setJSON(txn, identityKey(identity.IdentityID), identity); err != nil {
		return err
	}
	return txn.Set(identityOccKey(identity.Occupancy, identity.IdentityID), nil)
}

// splitOccKey extracts the occupancy bucket and identity ID from an index
// key of the form identity_occ:<n>:<id>.
func splitOccKey(key []byte) (occupancy int, id string, err error) {
	rest := string(key[len(prefixIdentityOcc):])
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' {
			occupancy = int(rest[0] - '0')
			return occupancy, rest[i+1:], nil
		}
	}
	return 0, "", fmt.Errorf("malformed occupancy index key %q", key)
}
