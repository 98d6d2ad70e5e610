// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

// Package metrics provides Prometheus instrumentation for Honeytrace:
// token lifecycle, identity pool churn, the correlation pipeline, and the
// management API. Collectors are registered via promauto and exposed on
// /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Token lifecycle
	TokensCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_tokens_created_total",
			Help: "Total number of honeytokens generated",
		},
	)

	TokensRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_tokens_revoked_total",
			Help: "Total number of honeytokens revoked",
		},
	)

	ResourcesRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_resources_registered_total",
			Help: "Total number of honey resources registered",
		},
	)

	ResourcesDeregistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_resources_deregistered_total",
			Help: "Total number of honey resources deregistered",
		},
	)

	// Identity pool
	IdentitiesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_identities_created_total",
			Help: "Total number of pooled IAM identities created",
		},
	)

	IdentitiesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_identities_deleted_total",
			Help: "Total number of pooled IAM identities destroyed",
		},
	)

	// Correlation pipeline
	AuditRecordsSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_audit_records_total",
			Help: "Total number of audit records inspected by the correlator",
		},
	)

	EventsCorrelated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_events_correlated_total",
			Help: "Total number of audit records matched to a honeytoken",
		},
	)

	AlertsRaised = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_alerts_raised_total",
			Help: "Total number of events that passed cooldown deduplication",
		},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeytrace_alerts_suppressed_total",
			Help: "Total number of events suppressed by the cooldown window",
		},
	)

	AlertDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeytrace_alert_deliveries_total",
			Help: "Alert notifier delivery attempts by notifier and outcome",
		},
		[]string{"notifier", "outcome"},
	)

	// Management API
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "honeytrace_api_request_duration_seconds",
			Help:    "Duration of management API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	apiRequestsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "honeytrace_api_requests_active",
			Help: "Management API requests currently in flight",
		},
	)

	// Message bus
	BusPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeytrace_bus_publishes_total",
			Help: "Bus publish attempts by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)
)

// RecordAPIRequest records one completed management API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	apiRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		apiRequestsActive.Inc()
	} else {
		apiRequestsActive.Dec()
	}
}

// RecordBusPublish records one publish attempt.
func RecordBusPublish(topic string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BusPublishes.WithLabelValues(topic, outcome).Inc()
}

// RecordAlertDelivery records one notifier delivery attempt.
func RecordAlertDelivery(notifier string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AlertDeliveries.WithLabelValues(notifier, outcome).Inc()
}
