// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package services

import (
	"context"
	"fmt"
)

// RouterRunner matches the event bus router lifecycle. Satisfied by
// *eventbus.Router.
type RouterRunner interface {
	Run(ctx context.Context) error
	Close() error
}

// BusService wraps the event bus router as a supervised service.
//
// Router.Run already blocks until the context is canceled and tears the
// handlers down itself, so Serve is a thin passthrough. If Run returns
// an error while the context is still live, suture restarts the service
// according to its backoff policy, which re-subscribes every handler.
type BusService struct {
	router RouterRunner
	name   string
}

// NewBusService creates an event bus service wrapper.
func NewBusService(router RouterRunner) *BusService {
	return &BusService{router: router, name: "event-bus"}
}

// Serve implements suture.Service.
func (s *BusService) Serve(ctx context.Context) error {
	if err := s.router.Run(ctx); err != nil {
		return fmt.Errorf("event bus router failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *BusService) String() string {
	return s.name
}
