// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package correlate matches audit-trail records against the honeytoken
// registry. The correlator is stateless: it reads tokens, never writes,
// and emits candidates for the alert deduplicator to decide on.
package correlate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/honeytrace/internal/logging"
	"github.com/tomtom215/honeytrace/internal/metrics"
	"github.com/tomtom215/honeytrace/internal/models"
	"github.com/tomtom215/honeytrace/internal/store"
)

// TokenReader is the registry surface the correlator needs.
type TokenReader interface {
	Get(ctx context.Context, accessKeyID string) (*models.HoneyToken, error)
}

// Correlator filters audit records down to honeytoken hits.
type Correlator struct {
	tokens TokenReader
	logger zerolog.Logger
	now    func() int64
}

// New creates a correlator reading tokens from r.
func New(r TokenReader) *Correlator {
	return &Correlator{
		tokens: r,
		logger: logging.WithComponent("correlator"),
		now:    func() int64 { return time.Now().Unix() },
	}
}

// WithNow overrides the clock. Test helper.
func (c *Correlator) WithNow(now func() int64) *Correlator {
	c.now = now
	return c
}

// Unwrap parses a notification envelope into its audit records. An
// envelope with no Records array yields an empty slice, not an error;
// the delivery pipeline sends non-record notifications too.
func Unwrap(payload []byte) ([]models.AuditRecord, error) {
	var envelope models.AuditEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("parse audit envelope: %w", err)
	}
	return envelope.Records, nil
}

// Correlate filters records to those hitting an active, unexpired
// honeytoken. Records without an access key, or whose key is unknown,
// inactive, or expired, are dropped. Survivors carry a snapshot of the
// matched token for the alert payload.
func (c *Correlator) Correlate(ctx context.Context, records []models.AuditRecord) ([]models.Candidate, error) {
	now := c.now()
	var candidates []models.Candidate
	for _, record := range records {
		metrics.AuditRecordsSeen.Inc()

		accessKeyID := record.UserIdentity.AccessKeyID
		if accessKeyID == "" {
			continue
		}

		token, err := c.tokens.Get(ctx, accessKeyID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("look up token %s: %w", accessKeyID, err)
		}
		if !token.Active || token.Expired(now) {
			continue
		}

		event, err := buildEvent(record, accessKeyID)
		if err != nil {
			// A matched record with a mangled timestamp is still a
			// hit; losing it silently would hide an intrusion.
			return nil, err
		}
		candidates = append(candidates, models.Candidate{Event: event, Token: *token})
		metrics.EventsCorrelated.Inc()

		c.logger.Warn().
			Str("access_key_id", accessKeyID).
			Str("event_name", record.EventName).
			Str("source_ip", record.SourceIPAddress).
			Msg("honeytoken use detected")
	}
	return candidates, nil
}

// buildEvent maps an audit record onto the fixed event schema.
func buildEvent(record models.AuditRecord, accessKeyID string) (models.Event, error) {
	eventTime, err := time.Parse(time.RFC3339, record.EventTime)
	if err != nil {
		return models.Event{}, fmt.Errorf("parse event time %q: %w", record.EventTime, err)
	}
	return models.Event{
		EventID:           record.EventID,
		AccessKeyID:       accessKeyID,
		EventTime:         eventTime.Unix(),
		EventName:         record.EventName,
		EventRegion:       record.AWSRegion,
		RequestParameters: record.RequestParameters,
		SourceIPAddress:   record.SourceIPAddress,
		UserAgent:         record.UserAgent,
	}, nil
}
