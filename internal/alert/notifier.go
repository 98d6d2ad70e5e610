// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package alert delivers decided alerts to the configured notifier
// channels. Delivery is at-least-once and fire-and-forget from the
// pipeline's point of view: a failing channel is logged and counted, it
// never blocks or fails the others.
package alert

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/honeytrace/internal/logging"
	"github.com/tomtom215/honeytrace/internal/metrics"
	"github.com/tomtom215/honeytrace/internal/models"
)

// Notifier is one delivery channel for alerts.
type Notifier interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// Enabled reports whether the channel is configured and active.
	Enabled() bool

	// Send delivers one alert. Blocking, honors ctx.
	Send(ctx context.Context, msg *models.AlertMessage) error
}

// Fanout delivers each alert to every enabled notifier.
type Fanout struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewFanout creates a fanout over the given notifiers.
func NewFanout(notifiers ...Notifier) *Fanout {
	return &Fanout{
		notifiers: notifiers,
		logger:    logging.WithComponent("alert-fanout"),
	}
}

// Deliver sends the alert to all enabled notifiers. Per-channel failures
// are logged and counted; Deliver itself only fails on ctx cancellation
// so the bus does not redeliver an alert some channels already carried.
func (f *Fanout) Deliver(ctx context.Context, msg *models.AlertMessage) error {
	for _, n := range f.notifiers {
		if !n.Enabled() {
			continue
		}
		err := n.Send(ctx, msg)
		metrics.RecordAlertDelivery(n.Name(), err)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Error().Err(err).
				Str("notifier", n.Name()).
				Str("event_id", msg.Event.EventID).
				Msg("alert delivery failed")
			continue
		}
		f.logger.Info().
			Str("notifier", n.Name()).
			Str("event_id", msg.Event.EventID).
			Str("access_key_id", msg.Event.AccessKeyID).
			Msg("alert delivered")
	}
	return nil
}
