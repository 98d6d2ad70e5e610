// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package models

import "github.com/goccy/go-json"

// AuditRecord is one entry from the cloud audit trail, in CloudTrail's
// record shape. Download and decompression of the raw trail files happen
// upstream; Honeytrace receives records already unwrapped into
// notification envelopes.
type AuditRecord struct {
	EventID           string          `json:"eventID"`
	EventName         string          `json:"eventName"`
	EventTime         string          `json:"eventTime"` // RFC 3339
	AWSRegion         string          `json:"awsRegion"`
	SourceIPAddress   string          `json:"sourceIPAddress"`
	UserAgent         string          `json:"userAgent"`
	RequestParameters json.RawMessage `json:"requestParameters,omitempty"`
	UserIdentity      UserIdentity    `json:"userIdentity"`
}

// UserIdentity is the caller identity portion of an audit record. Only
// the access key matters for correlation; records without one are
// discarded.
type UserIdentity struct {
	AccessKeyID string `json:"accessKeyId,omitempty"`
	Type        string `json:"type,omitempty"`
	ARN         string `json:"arn,omitempty"`
}

// AuditEnvelope is one notification message from the audit-log delivery
// pipeline, carrying a batch of audit records.
type AuditEnvelope struct {
	Records []AuditRecord `json:"Records"`
}
