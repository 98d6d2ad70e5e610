// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package dedup decides whether a correlated event alerts, under the
// configured cooldown policy, and persists the event with that decision.
//
// The decision and the write share one serializable Badger transaction
// over the store's shared key layout. Every decision point-reads the
// credential's alert-head key and every alert writes it, so two racing
// events for one credential conflict at commit; the loser re-evaluates
// against the winner's write. That closes the read-then-write
// double-alert race: a cooldown window admits at most one alert per
// credential per store.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/honeytrace/internal/logging"
	"github.com/tomtom215/honeytrace/internal/metrics"
	"github.com/tomtom215/honeytrace/internal/models"
	"github.com/tomtom215/honeytrace/internal/store"
)

// Cooldown policy values. Positive values are sliding windows in seconds.
const (
	// CooldownAlways alerts on every correlated event.
	CooldownAlways = 0

	// CooldownOnce alerts only on the first event ever for a credential.
	CooldownOnce = -1
)

// recordRetries bounds re-evaluation under transaction conflicts.
const recordRetries = 5

// ErrContended indicates the decision transaction kept conflicting.
var ErrContended = errors.New("alert decision contended, retry")

// Deduplicator records events with their alert decision.
type Deduplicator struct {
	db       *badger.DB
	cooldown int64
	logger   zerolog.Logger
}

// New creates a deduplicator over the shared store with the given
// cooldown in seconds (0 always alerts, -1 alerts once per credential).
func New(s *store.Store, cooldown int64) *Deduplicator {
	return &Deduplicator{
		db:       s.DB(),
		cooldown: cooldown,
		logger:   logging.WithComponent("dedup"),
	}
}

// Record persists the candidate's event with its alert decision and
// reports whether to raise an alert now. A redelivered event (same event
// ID) is not rewritten and never re-alerts, whatever was decided the
// first time.
func (d *Deduplicator) Record(ctx context.Context, cand models.Candidate) (*models.Event, bool, error) {
	for attempt := 0; attempt < recordRetries; attempt++ {
		event, alerted, duplicate, err := d.tryRecord(cand)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if duplicate {
			d.logger.Debug().
				Str("event_id", event.EventID).
				Msg("redelivered event, not re-alerting")
			return event, false, nil
		}
		if alerted {
			metrics.AlertsRaised.Inc()
		} else {
			metrics.AlertsSuppressed.Inc()
			d.logger.Info().
				Str("event_id", event.EventID).
				Str("access_key_id", event.AccessKeyID).
				Msg("alert suppressed by cooldown")
		}
		return event, alerted, nil
	}
	return nil, false, ErrContended
}

// tryRecord runs one decide-and-write transaction.
func (d *Deduplicator) tryRecord(cand models.Candidate) (event *models.Event, alerted, duplicate bool, err error) {
	err = d.db.Update(func(txn *badger.Txn) error {
		existing, err := getEvent(txn, cand.Event.EventID)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if existing != nil {
			event, duplicate = existing, true
			return nil
		}

		head, headFound, err := alertHead(txn, cand.Event.AccessKeyID)
		if err != nil {
			return err
		}
		shouldAlert := d.decide(cand.Event.EventTime, head, headFound)

		e := cand.Event
		e.Alerted = shouldAlert
		data, err := json.Marshal(&e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.EventID, err)
		}
		if err := txn.Set(store.EventKey(e.EventID), data); err != nil {
			return err
		}
		flag := []byte("0")
		if shouldAlert {
			flag = []byte("1")
		}
		if err := txn.Set(store.EventTokenKey(e.AccessKeyID, e.EventTime, e.EventID), flag); err != nil {
			return err
		}
		if shouldAlert {
			// The head is the max alerted time, so late-arriving
			// alerts never move it backwards.
			newHead := e.EventTime
			if headFound && head > newHead {
				newHead = head
			}
			headVal := strconv.FormatInt(newHead, 10)
			if err := txn.Set(store.AlertHeadKey(e.AccessKeyID), []byte(headVal)); err != nil {
				return err
			}
		}

		event, alerted = &e, shouldAlert
		return nil
	})
	return event, alerted, duplicate, err
}

// decide evaluates the cooldown policy against the credential's latest
// alerted event time. Only events that themselves alerted count toward
// suppression, which the head invariantly reflects.
func (d *Deduplicator) decide(eventTime, head int64, headFound bool) bool {
	switch {
	case d.cooldown == CooldownAlways:
		return true
	case !headFound:
		return true
	case d.cooldown == CooldownOnce:
		return false
	default:
		return head <= eventTime-d.cooldown
	}
}

// alertHead point-reads the credential's latest alerted event time. The
// read is tracked for conflict detection even when the key is absent.
func alertHead(txn *badger.Txn, accessKeyID string) (int64, bool, error) {
	item, err := txn.Get(store.AlertHeadKey(accessKeyID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, false, err
	}
	head, err := strconv.ParseInt(string(val), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed alert head for %s: %w", accessKeyID, err)
	}
	return head, true, nil
}

// getEvent loads an event record inside the transaction. Returns
// badger.ErrKeyNotFound when absent.
func getEvent(txn *badger.Txn, eventID string) (*models.Event, error) {
	item, err := txn.Get(store.EventKey(eventID))
	if err != nil {
		return nil, err
	}
	var event models.Event
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &event)
	}); err != nil {
		return nil, err
	}
	return &event, nil
}
