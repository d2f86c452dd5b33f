// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// Package worker consumes queued webhook jobs and processes them
// idempotently: idempotency pre-check, durable event record, rule
// evaluation, then per-alert persistence and best-effort notification.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/detection"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/github"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/logging"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/metrics"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/store"
)

// EventStore is the slice of the event store the processor needs.
type EventStore interface {
	Exists(ctx context.Context, deliveryID string) (bool, error)
	Insert(ctx context.Context, rec *store.EventRecord) error
}

// AlertStore is the slice of the alert store the processor needs.
type AlertStore interface {
	Insert(ctx context.Context, rec *store.AlertRecord) error
}

// Processor runs the ordered processing steps for one job. Reprocessing the
// same delivery is always safe: the pre-check and the store's uniqueness
// constraint both short-circuit to success.
type Processor struct {
	events    EventStore
	alerts    AlertStore
	engine    *detection.Engine
	notifiers []detection.Notifier
	now       func() time.Time
}

// NewProcessor wires the processor's collaborators.
func NewProcessor(events EventStore, alerts AlertStore, engine *detection.Engine, notifiers ...detection.Notifier) *Processor {
	return &Processor{
		events:    events,
		alerts:    alerts,
		engine:    engine,
		notifiers: notifiers,
		now:       time.Now,
	}
}

// Process handles one delivery. A nil return acks the message; an error
// nacks it for redelivery.
func (p *Processor) Process(ctx context.Context, job *github.Job) error {
	// Step 1: idempotency pre-check. A recorded delivery was fully
	// processed before; redeliveries ack without side effects.
	exists, err := p.events.Exists(ctx, job.DeliveryID)
	if err != nil {
		return fmt.Errorf("idempotency check for %s: %w", job.DeliveryID, err)
	}
	if exists {
		logging.Info().
			Str("delivery_id", job.DeliveryID).
			Msg("Delivery already processed, skipping")
		metrics.RecordProcessed("duplicate", string(job.EventType))
		return nil
	}

	event, err := job.Event()
	if err != nil {
		// Malformed payloads can never succeed; ack and drop.
		logging.Error().
			Err(err).
			Str("delivery_id", job.DeliveryID).
			Str("event_type", string(job.EventType)).
			Msg("Dropping malformed payload")
		metrics.RecordProcessed("malformed", string(job.EventType))
		return nil
	}

	// Step 2: durable event record. The store's uniqueness on the
	// delivery ID is the authoritative guard against concurrent
	// duplicates that slipped past the pre-check.
	rec := p.buildRecord(job, event)
	if err := p.events.Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicateDelivery) {
			logging.Info().
				Str("delivery_id", job.DeliveryID).
				Msg("Concurrent duplicate detected by store, skipping")
			metrics.RecordProcessed("duplicate", string(job.EventType))
			return nil
		}
		return fmt.Errorf("persist event %s: %w", job.DeliveryID, err)
	}

	// Step 3: rule evaluation. Rule failures are isolated inside the
	// engine and never fail the job.
	alerts := p.engine.Evaluate(ctx, event)

	// Step 4: persist each alert, then notify best-effort.
	for _, alert := range alerts {
		alertRec := &store.AlertRecord{
			RuleName:   alert.RuleName,
			Severity:   string(alert.Severity),
			Message:    alert.Message,
			Metadata:   alert.Metadata,
			DeliveryID: job.DeliveryID,
		}
		if err := p.alerts.Insert(ctx, alertRec); err != nil {
			return fmt.Errorf("persist alert %s for %s: %w", alert.RuleName, job.DeliveryID, err)
		}
		metrics.RecordAlert(alert.RuleName, string(alert.Severity))

		p.notify(ctx, alert)
	}

	logging.Info().
		Str("delivery_id", job.DeliveryID).
		Str("event_type", string(job.EventType)).
		Int("alerts", len(alerts)).
		Msg("Delivery processed")
	metrics.RecordProcessed("processed", string(job.EventType))
	return nil
}

// notify fans the alert out to every notifier. Failures are logged and
// counted; notification never fails processing.
func (p *Processor) notify(ctx context.Context, alert *detection.Alert) {
	for _, n := range p.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			logging.Warn().
				Err(err).
				Str("notifier", n.Name()).
				Str("rule", alert.RuleName).
				Msg("Alert notification failed")
			metrics.RecordNotifyFailure(n.Name())
		}
	}
}

// buildRecord extracts the persisted fields from the typed event.
func (p *Processor) buildRecord(job *github.Job, event *github.Event) *store.EventRecord {
	return &store.EventRecord{
		DeliveryID:        job.DeliveryID,
		EventType:         string(job.EventType),
		Action:            event.Action(),
		ResourceID:        event.ResourceID(),
		EventTimestamp:    event.OccurredAt(p.now().UTC()),
		Payload:           job.Payload,
		SenderLogin:       event.SenderLogin(),
		OrganizationLogin: event.OrganizationLogin(),
	}
}
