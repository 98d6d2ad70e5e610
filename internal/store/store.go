// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package store implements the BadgerDB persistence layer for Honeytrace:
// pooled identities, honeytokens, correlated events, and management API
// keys. All coordination state lives here; handler instances share nothing
// in process.
//
// Key layout:
//
//	identity:<id>                         identity record
//	identity_occ:<n>:<id>                 occupancy index (n in 0..2)
//	token:<accessKeyID>                   honeytoken record
//	event:<eventID>                       correlated event record
//	event_token:<accessKeyID>:<time>:<id> event index, value "1" if alerted
//	alert_head:<accessKeyID>              latest alerted event time
//	apikey:<keyID>                        management key record
//
// Badger transactions are serializable; the occupancy transitions and the
// alert-decision write depend on that for their conditional-update
// semantics. Conflicting concurrent transactions surface as ErrConflict
// and are retried by the callers that own the retry policy.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/honeytrace/internal/logging"
)

// Sentinel errors shared by the typed stores.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a concurrent transaction touched the same
	// records. Callers retry the whole read-decide-write cycle.
	ErrConflict = errors.New("transaction conflict")

	// ErrCapacityExceeded indicates an occupancy increment would push an
	// identity past its cap.
	ErrCapacityExceeded = errors.New("identity occupancy at capacity")

	// ErrIdentityInUse indicates a release was attempted on an identity
	// whose occupancy is already zero.
	ErrIdentityInUse = errors.New("identity occupancy already zero")
)

// scanPageSize is the number of records fetched per iteration batch when
// scanning a prefix. Scans accumulate pages until exhausted so callers see
// a single result set.
const scanPageSize = 100

// Config holds store configuration.
type Config struct {
	// Path is the Badger data directory. Ignored when InMemory is set.
	Path string

	// InMemory runs Badger without disk persistence. Used by tests and
	// ephemeral deployments.
	InMemory bool
}

// Store wraps a Badger database and exposes the typed sub-stores.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the Badger database described by cfg.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("store: path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store. Test helper.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying Badger handle for packages that run their own
// transactions against the shared key layout (the alert deduplicator).
func (s *Store) DB() *badger.DB {
	return s.db
}

// update runs fn in a read-write transaction, mapping Badger's conflict
// error to ErrConflict.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	err := s.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return ErrConflict
	}
	return err
}

// getJSON loads and unmarshals the value at key into out. Returns
// ErrNotFound for missing keys.
func getJSON(txn *badger.Txn, key []byte, out interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// unmarshalValue decodes a raw Badger value into out.
func unmarshalValue(val []byte, out interface{}) error {
	return json.Unmarshal(val, out)
}

// setJSON marshals v and stores it at key.
func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// scanPrefix iterates all keys under prefix in batches of scanPageSize,
// invoking fn for each item. fn returning false stops the scan early.
func scanPrefix(txn *badger.Txn, prefix []byte, fn func(item *badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchSize = scanPageSize

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		cont, err := fn(it.Item())
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}
