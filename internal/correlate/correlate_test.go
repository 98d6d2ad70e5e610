// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package correlate

import (
	"context"
	"testing"

	"github.com/tomtom215/honeytrace/internal/models"
	"github.com/tomtom215/honeytrace/internal/store"
)

// mapReader serves tokens from a map, standing in for the registry.
type mapReader map[string]*models.HoneyToken

func (m mapReader) Get(ctx context.Context, accessKeyID string) (*models.HoneyToken, error) {
	token, ok := m[accessKeyID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return token, nil
}

const testNow = int64(1700000000)

func record(eventID, accessKeyID string) models.AuditRecord {
	return models.AuditRecord{
		EventID:         eventID,
		EventName:       "GetCallerIdentity",
		EventTime:       "2023-11-14T22:13:20Z", // epoch 1700000000
		AWSRegion:       "us-east-1",
		SourceIPAddress: "198.51.100.7",
		UserAgent:       "aws-cli/2.13.0",
		UserIdentity:    models.UserIdentity{AccessKeyID: accessKeyID},
	}
}

func TestCorrelateFilters(t *testing.T) {
	tokens := mapReader{
		"AKIAACTIVE": {AccessKeyID: "AKIAACTIVE", Active: true},
		"AKIAPAUSED": {AccessKeyID: "AKIAPAUSED", Active: false},
		"AKIASTALE":  {AccessKeyID: "AKIASTALE", Active: true, ExpireTime: testNow - 60},
		"AKIAFUTURE": {AccessKeyID: "AKIAFUTURE", Active: true, ExpireTime: testNow + 3600},
	}
	c := New(tokens).WithNow(func() int64 { return testNow })

	tests := []struct {
		name    string
		records []models.AuditRecord
		want    []string // event IDs surviving correlation
	}{
		{
			name:    "active token matches",
			records: []models.AuditRecord{record("evt-1", "AKIAACTIVE")},
			want:    []string{"evt-1"},
		},
		{
			name:    "no access key dropped",
			records: []models.AuditRecord{record("evt-2", "")},
			want:    nil,
		},
		{
			name:    "unknown key dropped",
			records: []models.AuditRecord{record("evt-3", "AKIANOBODY")},
			want:    nil,
		},
		{
			name:    "inactive token dropped",
			records: []models.AuditRecord{record("evt-4", "AKIAPAUSED")},
			want:    nil,
		},
		{
			name:    "expired token dropped",
			records: []models.AuditRecord{record("evt-5", "AKIASTALE")},
			want:    nil,
		},
		{
			name:    "future expiry still matches",
			records: []models.AuditRecord{record("evt-6", "AKIAFUTURE")},
			want:    []string{"evt-6"},
		},
		{
			name: "mixed batch keeps only hits",
			records: []models.AuditRecord{
				record("evt-7", "AKIAACTIVE"),
				record("evt-8", ""),
				record("evt-9", "AKIAFUTURE"),
			},
			want: []string{"evt-7", "evt-9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, err := c.Correlate(context.Background(), tt.records)
			if err != nil {
				t.Fatalf("Correlate: %v", err)
			}
			if len(candidates) != len(tt.want) {
				t.Fatalf("got %d candidates, want %d", len(candidates), len(tt.want))
			}
			for i, id := range tt.want {
				if candidates[i].Event.EventID != id {
					t.Errorf("candidate %d = %s, want %s", i, candidates[i].Event.EventID, id)
				}
			}
		})
	}
}

func TestCorrelateEnrichesEvent(t *testing.T) {
	token := &models.HoneyToken{
		AccessKeyID: "AKIAACTIVE",
		Active:      true,
		Location:    "ci-secrets",
	}
	c := New(mapReader{"AKIAACTIVE": token}).WithNow(func() int64 { return testNow })

	candidates, err := c.Correlate(context.Background(), []models.AuditRecord{record("evt-1", "AKIAACTIVE")})
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates", len(candidates))
	}

	event := candidates[0].Event
	if event.EventTime != testNow {
		t.Errorf("event time = %d, want %d", event.EventTime, testNow)
	}
	if event.EventRegion != "us-east-1" {
		t.Errorf("region = %q", event.EventRegion)
	}
	if event.SourceIPAddress != "198.51.100.7" {
		t.Errorf("source ip = %q", event.SourceIPAddress)
	}
	if candidates[0].Token.Location != "ci-secrets" {
		t.Errorf("token snapshot location = %q", candidates[0].Token.Location)
	}
}

func TestCorrelateBadTimestamp(t *testing.T) {
	c := New(mapReader{"AKIAACTIVE": {AccessKeyID: "AKIAACTIVE", Active: true}})

	bad := record("evt-1", "AKIAACTIVE")
	bad.EventTime = "yesterday-ish"
	if _, err := c.Correlate(context.Background(), []models.AuditRecord{bad}); err == nil {
		t.Fatal("expected error for unparseable event time")
	}
}

func TestUnwrap(t *testing.T) {
	records, err := Unwrap([]byte(`{"Records":[{"eventID":"evt-1","userIdentity":{"accessKeyId":"AKIA1"}}]}`))
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if len(records) != 1 || records[0].EventID != "evt-1" {
		t.Fatalf("records = %+v", records)
	}
	if records[0].UserIdentity.AccessKeyID != "AKIA1" {
		t.Errorf("access key = %q", records[0].UserIdentity.AccessKeyID)
	}
}

func TestUnwrapNonRecordNotification(t *testing.T) {
	records, err := Unwrap([]byte(`{"Event":"s3:TestEvent"}`))
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %+v, want none", records)
	}
}

func TestUnwrapMalformed(t *testing.T) {
	if _, err := Unwrap([]byte(`{"Records":`)); err == nil {
		t.Fatal("expected parse error")
	}
}
