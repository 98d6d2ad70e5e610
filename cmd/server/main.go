// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package main is the entry point for the Honeytrace server.
//
// Honeytrace mints decoy AWS credentials (honeytokens) on shared IAM
// identities and raises alerts when audit logs show those credentials
// being used. Any use of a honeytoken is an intrusion signal: the
// credentials grant nothing and are never handed to legitimate callers.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layering (defaults, config.yaml, env)
//  2. Logging: zerolog, JSON by default
//  3. Store: BadgerDB holding tokens, identities, events, and API keys
//  4. Identity provider: AWS IAM/STS client for decoy principals
//  5. Pipeline: NATS JetStream bus with correlate, dedup, and deliver
//     handlers behind a Watermill router
//  6. HTTP API: chi router for token, event, and key management
//
// The pipeline and the HTTP server run as supervised services under a
// suture tree, so a crash in one layer restarts that layer without
// taking down the other.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (prefix HONEYTRACE_, e.g. HONEYTRACE_SERVER_PORT)
//   - Config file (config.yaml, or HONEYTRACE_CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests and messages to drain
//   - Closes the bus, the store, and exits
//
// # Example Usage
//
//	export HONEYTRACE_AWS_REGION=us-east-1
//	export HONEYTRACE_NATS_URL=nats://nats:4222
//	export HONEYTRACE_SECURITY_PROVISION_KEY=$(openssl rand -base64 32)
//	./honeytrace
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/honeytrace/internal/alert"
	"github.com/tomtom215/honeytrace/internal/api"
	"github.com/tomtom215/honeytrace/internal/auth"
	"github.com/tomtom215/honeytrace/internal/config"
	"github.com/tomtom215/honeytrace/internal/correlate"
	"github.com/tomtom215/honeytrace/internal/dedup"
	"github.com/tomtom215/honeytrace/internal/eventbus"
	"github.com/tomtom215/honeytrace/internal/logging"
	"github.com/tomtom215/honeytrace/internal/pool"
	"github.com/tomtom215/honeytrace/internal/provider"
	"github.com/tomtom215/honeytrace/internal/registry"
	"github.com/tomtom215/honeytrace/internal/store"
	"github.com/tomtom215/honeytrace/internal/supervisor"
	"github.com/tomtom215/honeytrace/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.WithComponent("main")
	logger.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Str("nats_url", cfg.NATS.URL).
		Int64("cooldown_seconds", cfg.Alert.CooldownSeconds).
		Msg("starting honeytrace")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store.
	s, err := store.Open(store.Config{Path: cfg.Store.Path, InMemory: cfg.Store.InMemory})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("store close failed")
		}
	}()

	// Identity provider.
	idp, err := provider.ConnectAWS(ctx, provider.AWSConfig{
		Region:    cfg.AWS.Region,
		GroupName: cfg.AWS.GroupName,
		TagKey:    cfg.AWS.TagKey,
	})
	if err != nil {
		return fmt.Errorf("connect aws: %w", err)
	}

	// Token lifecycle.
	identityPool := pool.New(s, idp)
	reg := registry.New(identityPool, idp, s)
	resources := registry.NewResources(s)

	// Pipeline stages.
	correlator := correlate.New(s.Tokens())
	deduper := dedup.New(s, cfg.Alert.CooldownSeconds)
	fanout := buildFanout(cfg)

	// Event bus.
	busLogger := eventbus.NewLoggerAdapter()
	publisher, err := eventbus.NewPublisher(eventbus.DefaultPublisherConfig(cfg.NATS.URL), busLogger)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	defer publisher.Close()

	subscriber, err := eventbus.NewSubscriber(
		eventbus.DefaultSubscriberConfig(cfg.NATS.URL, cfg.NATS.DurableName, cfg.NATS.QueueGroup),
		busLogger,
	)
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}
	defer subscriber.Close()

	routerCfg := eventbus.DefaultRouterConfig()
	routerCfg.CloseTimeout = cfg.NATS.RouterCloseTimeout
	routerCfg.RetryMaxRetries = cfg.NATS.RouterRetryCount
	routerCfg.PoisonQueueTopic = cfg.NATS.PoisonQueueTopic
	router, err := eventbus.NewRouter(routerCfg, publisher.WatermillPublisher(), busLogger)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	pipeline := eventbus.NewPipeline(correlator, deduper, fanout)
	pipeline.Register(router, subscriber.WatermillSubscriber(), publisher.WatermillPublisher())

	// HTTP API.
	manager := auth.NewManager(s, cfg.Security.ProvisionKey)
	server := api.New(reg, resources, s, manager, publisher, api.Config{
		RateLimitReqs:   cfg.Security.RateLimitReqs,
		RateLimitWindow: cfg.Security.RateLimitWindow,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	// Supervisor tree.
	tree := supervisor.NewTree(logging.Slog("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewBusService(router))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	logger.Info().Msg("honeytrace started")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	logger.Info().Msg("honeytrace stopped")
	return nil
}

// buildFanout assembles the alert delivery channels enabled in config.
func buildFanout(cfg *config.Config) *alert.Fanout {
	var notifiers []alert.Notifier
	if cfg.Alert.WebhookEnabled {
		notifiers = append(notifiers, alert.NewWebhookNotifier(alert.WebhookConfig{
			WebhookURL:  cfg.Alert.WebhookURL,
			Headers:     cfg.Alert.WebhookHeaders,
			Enabled:     true,
			RateLimitMs: cfg.Alert.WebhookRateLimitMs,
		}))
	}
	return alert.NewFanout(notifiers...)
}
