// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// Package detection implements the security rule engine: a static registry
// of rules evaluated concurrently against each processed event, with
// per-rule failure isolation.
package detection

import (
	"context"
	"time"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/github"
)

// Severity classifies how urgent an alert is.
type Severity string

// Severity levels, lowest to highest.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is a rule match. Metadata is a flat map of scalar context values
// that serializes into the persisted record.
type Alert struct {
	RuleName string                 `json:"rule_name"`
	Severity Severity               `json:"severity"`
	Message  string                 `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Rule is a single detection rule. Implementations must be safe for
// concurrent Evaluate calls.
type Rule interface {
	// Name identifies the rule in alerts, logs and metrics.
	Name() string

	// EventTypes lists the event types the rule applies to. The engine
	// never calls Evaluate with an event of another type.
	EventTypes() []github.EventType

	// Evaluate inspects one event. A nil alert with a nil error means the
	// rule did not match.
	Evaluate(ctx context.Context, event *github.Event) (*Alert, error)
}

// EventHistory looks up previously witnessed events. Implemented by the
// event store; rules that need historical evidence depend on this interface
// rather than the store itself.
type EventHistory interface {
	// LastCreation returns the event time of the newest witnessed
	// "created" event for the resource at or after since. ok is false
	// when no such event is on record.
	LastCreation(ctx context.Context, resourceID string, since time.Time) (created time.Time, ok bool, err error)
}

// Notifier delivers alerts to an external sink. Notification is best
// effort; failures are logged and counted but never fail processing.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert *Alert) error
}
