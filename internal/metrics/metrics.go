// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// Package metrics exposes Prometheus instrumentation for the sentinel.
// Metrics are registered on the default registry via promauto and served
// from the gateway's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksReceived counts deliveries by gateway outcome:
	// queued, ignored, invalid_signature, saturated, malformed, error.
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_webhooks_received_total",
			Help: "Webhook deliveries received, by outcome",
		},
		[]string{"outcome", "event_type"},
	)

	// QueueDepth tracks the last observed stream message count.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_queue_depth",
			Help: "Last observed message count of the event stream",
		},
	)

	// EventsProcessed counts worker outcomes: processed, duplicate, failed.
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_events_processed_total",
			Help: "Queued events processed by the worker, by outcome",
		},
		[]string{"outcome", "event_type"},
	)

	// AlertsGenerated counts persisted alerts.
	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_generated_total",
			Help: "Alerts generated, by rule and severity",
		},
		[]string{"rule", "severity"},
	)

	// RuleEvaluationDuration observes per-rule evaluation latency.
	RuleEvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_rule_evaluation_seconds",
			Help:    "Rule evaluation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"rule"},
	)

	// NotifyFailures counts best-effort notification failures.
	NotifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notify_failures_total",
			Help: "Alert notification failures, by notifier",
		},
		[]string{"notifier"},
	)

	// PublishTotal counts queue publishes from the gateway.
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_queue_publish_total",
			Help: "Queue publish attempts, by result",
		},
		[]string{"result"},
	)
)

// RecordWebhook records a gateway outcome for a delivery.
func RecordWebhook(outcome, eventType string) {
	WebhooksReceived.WithLabelValues(outcome, eventType).Inc()
}

// RecordQueueDepth stores the latest stream depth observation.
func RecordQueueDepth(depth int64) {
	QueueDepth.Set(float64(depth))
}

// RecordProcessed records a worker outcome for an event.
func RecordProcessed(outcome, eventType string) {
	EventsProcessed.WithLabelValues(outcome, eventType).Inc()
}

// RecordAlert records a persisted alert.
func RecordAlert(rule, severity string) {
	AlertsGenerated.WithLabelValues(rule, severity).Inc()
}

// RecordNotifyFailure records a failed best-effort notification.
func RecordNotifyFailure(notifier string) {
	NotifyFailures.WithLabelValues(notifier).Inc()
}

// RecordPublish records a queue publish attempt.
func RecordPublish(ok bool) {
	if ok {
		PublishTotal.WithLabelValues("ok").Inc()
	} else {
		PublishTotal.WithLabelValues("error").Inc()
	}
}
