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

// EventStore persists correlated events. Events are append-only: the
// record and its (credential, time) index entry are written once by the
// alert deduplicator and only ever removed wholesale when their token is
// revoked.
type EventStore struct {
	s *Store
}

// Events returns the event sub-store.
func (s *Store) Events() *EventStore {
	return &EventStore{s: s}
}

// Get loads one event. Returns ErrNotFound if absent.
func (es *EventStore) Get(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := es.s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, EventKey(eventID), &event)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListForToken returns all events for a credential ordered by event time
// ascending. Pages through the index internally.
func (es *EventStore) ListForToken(ctx context.Context, accessKeyID string) ([]models.Event, error) {
	var events []models.Event
	err := es.s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, EventTokenPrefix(accessKeyID), func(item *badger.Item) (bool, error) {
			_, eventID, err := ParseEventTokenKey(item.Key())
			if err != nil {
				return false, err
			}
			var event models.Event
			if err := getJSON(txn, EventKey(eventID), &event); err != nil {
				return false, err
			}
			events = append(events, event)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// PurgeForToken deletes all events for a credential, both records and
// index entries. Returns the number of events removed. Safe to retry; a
// second purge removes nothing.
func (es *EventStore) PurgeForToken(ctx context.Context, accessKeyID string) (int, error) {
	// Collect first, then delete in a write transaction: Badger write
	// batches cap transaction size, and the collect pass keeps the
	// delete pass small and conflict-free.
	var (
		eventIDs []string
		idxKeys  [][]byte
	)
	err := es.s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, EventTokenPrefix(accessKeyID), func(item *badger.Item) (bool, error) {
			_, eventID, err := ParseEventTokenKey(item.Key())
			if err != nil {
				return false, err
			}
			eventIDs = append(eventIDs, eventID)
			idxKeys = append(idxKeys, item.KeyCopy(nil))
			return true, nil
		})
	})
	if err != nil {
		return 0, err
	}
	if len(eventIDs) == 0 {
		return 0, nil
	}

	err = es.s.update(func(txn *badger.Txn) error {
		for i, eventID := range eventIDs {
			if err := txn.Delete(EventKey(eventID)); err != nil {
				return err
			}
			if err := txn.Delete(idxKeys[i]); err != nil {
				return err
			}
		}
		return txn.Delete(AlertHeadKey(accessKeyID))
	})
	if err != nil {
		return 0, err
	}
	return len(eventIDs), nil
}
