// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package models

import "github.com/goccy/go-json"

// Event is one audit-log hit matched to a honeytoken, persisted with the
// alert decision made at write time. The Alerted flag is immutable once
// the event is stored.
type Event struct {
	// EventID is the source-assigned audit event ID and the primary key.
	EventID string `json:"event_id"`

	// AccessKeyID is the honeytoken the event was correlated to.
	AccessKeyID string `json:"access_key_id"`

	// EventTime is the audit timestamp in epoch seconds.
	EventTime int64 `json:"event_time"`

	// EventName is the API action recorded by the audit trail.
	EventName string `json:"event_name"`

	// EventRegion is the region the action was performed in.
	EventRegion string `json:"event_region"`

	// RequestParameters is the opaque request payload from the audit
	// record, kept verbatim for forensics.
	RequestParameters json.RawMessage `json:"request_parameters,omitempty"`

	// SourceIPAddress is the caller address.
	SourceIPAddress string `json:"source_ip_address"`

	// UserAgent is the caller user agent.
	UserAgent string `json:"user_agent"`

	// Alerted records the cooldown decision made when the event was
	// written. Only alerted events suppress later ones.
	Alerted bool `json:"alerted"`
}

// Candidate is a correlated event before its alert decision, enriched with
// a snapshot of the matched token for downstream alert payloads. Only the
// Event portion is persisted.
type Candidate struct {
	Event Event      `json:"event"`
	Token HoneyToken `json:"token"`
}

// AlertMessage is the payload published to the alert topic once an event
// has been decided alert-worthy.
type AlertMessage struct {
	Event Event      `json:"event"`
	Token HoneyToken `json:"token"`
}
