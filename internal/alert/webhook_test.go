// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/honeytrace/internal/models"
)

func testAlert() *models.AlertMessage {
	return &models.AlertMessage{
		Event: models.Event{
			EventID:         "evt-1",
			AccessKeyID:     "AKIA1",
			EventTime:       1700000000,
			EventName:       "GetCallerIdentity",
			SourceIPAddress: "198.51.100.7",
			Alerted:         true,
		},
		Token: models.HoneyToken{
			AccessKeyID: "AKIA1",
			Location:    "ci-secrets",
			Active:      true,
		},
	}
}

func TestWebhookEnabled(t *testing.T) {
	tests := []struct {
		name   string
		config WebhookConfig
		want   bool
	}{
		{"enabled with url", WebhookConfig{WebhookURL: "https://example.com/hook", Enabled: true}, true},
		{"disabled", WebhookConfig{WebhookURL: "https://example.com/hook", Enabled: false}, false},
		{"enabled without url", WebhookConfig{Enabled: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewWebhookNotifier(tt.config).Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWebhookSend(t *testing.T) {
	var gotAuth string
	var payload WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{
		WebhookURL: srv.URL,
		Headers:    map[string]string{"Authorization": "Bearer token"},
		Enabled:    true,
	})

	if err := n.Send(context.Background(), testAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != "Bearer token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if payload.EventType != "honeytoken_alert" {
		t.Errorf("event type = %q", payload.EventType)
	}
	if payload.Source != "honeytrace" {
		t.Errorf("source = %q", payload.Source)
	}
	if payload.Alert == nil || payload.Alert.Event.EventID != "evt-1" {
		t.Errorf("alert payload = %+v", payload.Alert)
	}
}

func TestWebhookSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{WebhookURL: srv.URL, Enabled: true})
	if err := n.Send(context.Background(), testAlert()); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestWebhookSendDisabledIsNoop(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{WebhookURL: srv.URL, Enabled: false})
	if err := n.Send(context.Background(), testAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("disabled notifier sent %d requests", calls)
	}
}

// stubNotifier counts deliveries and optionally fails.
type stubNotifier struct {
	name    string
	enabled bool
	err     error
	sent    int32
}

func (s *stubNotifier) Name() string  { return s.name }
func (s *stubNotifier) Enabled() bool { return s.enabled }
func (s *stubNotifier) Send(ctx context.Context, msg *models.AlertMessage) error {
	atomic.AddInt32(&s.sent, 1)
	return s.err
}

func TestFanoutDeliversToAllEnabled(t *testing.T) {
	a := &stubNotifier{name: "a", enabled: true}
	b := &stubNotifier{name: "b", enabled: false}
	c := &stubNotifier{name: "c", enabled: true}

	f := NewFanout(a, b, c)
	if err := f.Deliver(context.Background(), testAlert()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if a.sent != 1 || c.sent != 1 {
		t.Errorf("sent = %d/%d, want 1/1", a.sent, c.sent)
	}
	if b.sent != 0 {
		t.Errorf("disabled notifier received %d deliveries", b.sent)
	}
}

func TestFanoutContinuesPastFailures(t *testing.T) {
	a := &stubNotifier{name: "a", enabled: true, err: context.DeadlineExceeded}
	b := &stubNotifier{name: "b", enabled: true}

	f := NewFanout(a, b)
	if err := f.Deliver(context.Background(), testAlert()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if b.sent != 1 {
		t.Errorf("later notifier skipped after failure, sent = %d", b.sent)
	}
}
