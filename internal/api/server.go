// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package api serves the management HTTP interface: honeytoken and honey
// resource CRUD, event queries, management key administration, synthetic
// test alerts, health, and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tomtom215/honeytrace/internal/auth"
	"github.com/tomtom215/honeytrace/internal/logging"
	"github.com/tomtom215/honeytrace/internal/models"
	"github.com/tomtom215/honeytrace/internal/registry"
	"github.com/tomtom215/honeytrace/internal/store"
)

// AlertPublisher publishes synthetic alerts for the test endpoint.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, am *models.AlertMessage) error
}

// Config tunes the HTTP surface.
type Config struct {
	RateLimitReqs   int
	RateLimitWindow time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	registry  *registry.Registry
	resources *registry.Resources
	events    *store.EventStore
	auth      *auth.Manager
	alerts    AlertPublisher
	validate  *validator.Validate
	config    Config
	logger    zerolog.Logger
}

// New creates the API server.
func New(reg *registry.Registry, res *registry.Resources, s *store.Store, am *auth.Manager, alerts AlertPublisher, cfg Config) *Server {
	if cfg.RateLimitReqs == 0 {
		cfg.RateLimitReqs = 100
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = time.Minute
	}
	return &Server{
		registry:  reg,
		resources: res,
		events:    s.Events(),
		auth:      am,
		alerts:    alerts,
		validate:  validator.New(),
		config:    cfg,
		logger:    logging.WithComponent("api"),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/api/v1/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByRealIP(s.config.RateLimitReqs, s.config.RateLimitWindow))

		r.Route("/tokens", func(r chi.Router) {
			r.Use(s.auth.Authenticate)
			r.Get("/", s.handleListTokens)
			r.Post("/", s.handleCreateToken)
			r.Get("/{accessKeyID}", s.handleGetToken)
			r.Patch("/{accessKeyID}", s.handlePatchToken)
			r.Delete("/{accessKeyID}", s.handleDeleteToken)
			r.Get("/{accessKeyID}/events", s.handleListTokenEvents)
		})

		// Resources are addressed by ARN in the body or query string,
		// never the path.
		r.Route("/resources", func(r chi.Router) {
			r.Use(s.auth.Authenticate)
			r.Get("/", s.handleListResources)
			r.Post("/", s.handleCreateResource)
			r.Patch("/", s.handlePatchResource)
			r.Delete("/", s.handleDeleteResource)
		})

		r.With(s.auth.Authenticate).Get("/events/{eventID}", s.handleGetEvent)

		r.Route("/keys", func(r chi.Router) {
			// Creation accepts the provision bootstrap; everything
			// else requires a real admin key.
			r.With(s.auth.AuthenticateOrProvision, s.auth.RequireAdmin).Post("/", s.handleCreateKey)

			r.Group(func(r chi.Router) {
				r.Use(s.auth.Authenticate, s.auth.RequireAdmin)
				r.Get("/", s.handleListKeys)
				r.Get("/{keyID}", s.handleGetKey)
				r.Patch("/{keyID}", s.handlePatchKey)
				r.Delete("/{keyID}", s.handleDeleteKey)
			})
		})

		r.With(s.auth.Authenticate).Post("/alerts/test", s.handleTestAlert)
	})

	return r
}
