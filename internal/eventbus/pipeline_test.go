// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/honeytrace/internal/alert"
	"github.com/tomtom215/honeytrace/internal/correlate"
	"github.com/tomtom215/honeytrace/internal/dedup"
	"github.com/tomtom215/honeytrace/internal/models"
	"github.com/tomtom215/honeytrace/internal/store"
)

// captureNotifier collects delivered alerts and signals each arrival.
type captureNotifier struct {
	mu     sync.Mutex
	alerts []models.AlertMessage
	ch     chan struct{}
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ch: make(chan struct{}, 16)}
}

func (c *captureNotifier) Name() string  { return "capture" }
func (c *captureNotifier) Enabled() bool { return true }
func (c *captureNotifier) Send(ctx context.Context, msg *models.AlertMessage) error {
	c.mu.Lock()
	c.alerts = append(c.alerts, *msg)
	c.mu.Unlock()
	c.ch <- struct{}{}
	return nil
}

func (c *captureNotifier) waitForAlert(t *testing.T) models.AlertMessage {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for alert delivery")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alerts[len(c.alerts)-1]
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

// setupPipeline runs the full pipeline over an in-process pubsub.
func setupPipeline(t *testing.T, cooldown int64) (*gochannel.GoChannel, *captureNotifier, *store.Store) {
	t.Helper()

	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	notifier := newCaptureNotifier()
	pipeline := NewPipeline(
		correlate.New(s.Tokens()).WithNow(func() int64 { return 1700000000 }),
		dedup.New(s, cooldown),
		alert.NewFanout(notifier),
	)

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	router, err := NewRouter(RouterConfig{
		CloseTimeout:         5 * time.Second,
		RetryMaxRetries:      1,
		RetryInitialInterval: 10 * time.Millisecond,
		RetryMaxInterval:     100 * time.Millisecond,
		RetryMultiplier:      2.0,
	}, nil, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	pipeline.Register(router, pubsub, pubsub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := router.Run(ctx); err != nil && ctx.Err() == nil {
			t.Errorf("router: %v", err)
		}
	}()
	<-router.Running()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return pubsub, notifier, s
}

func putToken(t *testing.T, s *store.Store, accessKeyID string) {
	t.Helper()
	err := s.Tokens().Put(context.Background(), &models.HoneyToken{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: "secret",
		IdentityID:      "identity-1",
		Active:          true,
		Location:        "ci-secrets",
	})
	if err != nil {
		t.Fatalf("put token: %v", err)
	}
}

func publishAudit(t *testing.T, pubsub *gochannel.GoChannel, envelope models.AuditEnvelope) {
	t.Helper()
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if err := pubsub.Publish(TopicAudit, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		t.Fatalf("publish audit: %v", err)
	}
}

func auditRecord(eventID, accessKeyID, eventTime string) models.AuditRecord {
	return models.AuditRecord{
		EventID:         eventID,
		EventName:       "GetCallerIdentity",
		EventTime:       eventTime,
		AWSRegion:       "us-east-1",
		SourceIPAddress: "198.51.100.7",
		UserAgent:       "aws-cli/2.13.0",
		UserIdentity:    models.UserIdentity{AccessKeyID: accessKeyID},
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	pubsub, notifier, s := setupPipeline(t, dedup.CooldownAlways)
	putToken(t, s, "AKIAHONEY1")

	publishAudit(t, pubsub, models.AuditEnvelope{Records: []models.AuditRecord{
		auditRecord("evt-1", "AKIAHONEY1", "2023-11-14T22:13:20Z"),
	}})

	delivered := notifier.waitForAlert(t)
	if delivered.Event.EventID != "evt-1" {
		t.Errorf("alert event = %s", delivered.Event.EventID)
	}
	if delivered.Token.Location != "ci-secrets" {
		t.Errorf("alert token snapshot = %+v", delivered.Token)
	}
	if !delivered.Event.Alerted {
		t.Error("delivered event not flagged alerted")
	}

	// The event landed in the store with its decision.
	stored, err := s.Events().Get(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("stored event: %v", err)
	}
	if !stored.Alerted {
		t.Error("stored event not flagged alerted")
	}
}

func TestPipelineIgnoresUnknownKeys(t *testing.T) {
	pubsub, notifier, s := setupPipeline(t, dedup.CooldownAlways)
	putToken(t, s, "AKIAHONEY1")

	publishAudit(t, pubsub, models.AuditEnvelope{Records: []models.AuditRecord{
		auditRecord("evt-miss", "AKIAUNKNOWN", "2023-11-14T22:13:20Z"),
		auditRecord("evt-hit", "AKIAHONEY1", "2023-11-14T22:13:25Z"),
	}})

	delivered := notifier.waitForAlert(t)
	if delivered.Event.EventID != "evt-hit" {
		t.Errorf("alert event = %s", delivered.Event.EventID)
	}
	if notifier.count() != 1 {
		t.Errorf("deliveries = %d, want 1", notifier.count())
	}
}

func TestPipelineCooldownSuppression(t *testing.T) {
	pubsub, notifier, s := setupPipeline(t, 300)
	putToken(t, s, "AKIAHONEY1")

	// 22:13:20 alerts; 22:15:00 is inside the 300s window.
	publishAudit(t, pubsub, models.AuditEnvelope{Records: []models.AuditRecord{
		auditRecord("evt-1", "AKIAHONEY1", "2023-11-14T22:13:20Z"),
	}})
	notifier.waitForAlert(t)

	publishAudit(t, pubsub, models.AuditEnvelope{Records: []models.AuditRecord{
		auditRecord("evt-2", "AKIAHONEY1", "2023-11-14T22:15:00Z"),
	}})

	// The suppressed event still gets stored; poll for it rather than
	// racing the handler.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := s.Events().Get(context.Background(), "evt-2"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("suppressed event never stored")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if notifier.count() != 1 {
		t.Errorf("deliveries = %d, want 1 (second event suppressed)", notifier.count())
	}
	stored, err := s.Events().Get(context.Background(), "evt-2")
	if err != nil {
		t.Fatalf("stored event: %v", err)
	}
	if stored.Alerted {
		t.Error("suppressed event stored with alerted=true")
	}
}
