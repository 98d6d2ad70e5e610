// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/honeytrace/internal/alert"
	"github.com/tomtom215/honeytrace/internal/correlate"
	"github.com/tomtom215/honeytrace/internal/dedup"
	"github.com/tomtom215/honeytrace/internal/models"
)

// Pipeline wires the detection stages onto a router:
//
//	audit notifications -> correlator -> honeytoken.events
//	honeytoken.events   -> dedup      -> honeytoken.alerts
//	honeytoken.alerts   -> fanout
type Pipeline struct {
	correlator *correlate.Correlator
	dedup      *dedup.Deduplicator
	fanout     *alert.Fanout
}

// NewPipeline creates the pipeline over the three stages.
func NewPipeline(c *correlate.Correlator, d *dedup.Deduplicator, f *alert.Fanout) *Pipeline {
	return &Pipeline{correlator: c, dedup: d, fanout: f}
}

// Register adds the pipeline handlers to the router. sub and pub carry
// all three topics; in production they are the NATS subscriber and
// publisher, in tests a gochannel pubsub.
func (p *Pipeline) Register(r *Router, sub message.Subscriber, pub message.Publisher) {
	r.AddHandler("correlate-audit", TopicAudit, sub, TopicEvents, pub, p.handleAudit)
	r.AddHandler("decide-event", TopicEvents, sub, TopicAlerts, pub, p.handleEvent)
	r.AddConsumerHandler("deliver-alert", TopicAlerts, sub, p.handleAlert)
}

// handleAudit unwraps one audit notification and emits a message per
// correlated candidate.
func (p *Pipeline) handleAudit(msg *message.Message) ([]*message.Message, error) {
	records, err := correlate.Unwrap(msg.Payload)
	if err != nil {
		return nil, err
	}
	candidates, err := p.correlator.Correlate(msg.Context(), records)
	if err != nil {
		return nil, err
	}

	out := make([]*message.Message, 0, len(candidates))
	for _, cand := range candidates {
		payload, err := json.Marshal(cand)
		if err != nil {
			return nil, fmt.Errorf("marshal candidate %s: %w", cand.Event.EventID, err)
		}
		// The event ID keys broker-side dedup across redeliveries.
		out = append(out, message.NewMessage(cand.Event.EventID, payload))
	}
	return out, nil
}

// handleEvent records one candidate and emits an alert message when the
// cooldown decision says so.
func (p *Pipeline) handleEvent(msg *message.Message) ([]*message.Message, error) {
	var cand models.Candidate
	if err := json.Unmarshal(msg.Payload, &cand); err != nil {
		return nil, fmt.Errorf("unmarshal candidate: %w", err)
	}

	event, alerted, err := p.dedup.Record(msg.Context(), cand)
	if err != nil {
		return nil, err
	}
	if !alerted {
		return nil, nil
	}

	payload, err := json.Marshal(models.AlertMessage{Event: *event, Token: cand.Token})
	if err != nil {
		return nil, fmt.Errorf("marshal alert %s: %w", event.EventID, err)
	}
	return []*message.Message{message.NewMessage("alert-" + event.EventID, payload)}, nil
}

// handleAlert delivers one decided alert to the notifier fanout.
func (p *Pipeline) handleAlert(msg *message.Message) error {
	var am models.AlertMessage
	if err := json.Unmarshal(msg.Payload, &am); err != nil {
		return fmt.Errorf("unmarshal alert: %w", err)
	}
	return p.fanout.Deliver(msg.Context(), &am)
}

// PublishAlert publishes a decided alert directly to the alert topic.
// Used by the synthetic test-alert endpoint.
func (p *Publisher) PublishAlert(ctx context.Context, am *models.AlertMessage) error {
	payload, err := json.Marshal(am)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	id := am.Event.EventID
	if id == "" {
		id = uuid.New().String()
	}
	return p.Publish(ctx, TopicAlerts, message.NewMessage("alert-"+id, payload))
}
