// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// Package api implements the ingestion gateway HTTP surface: the webhook
// endpoint with signature verification, allow-listing and backpressure,
// plus health and metrics routes.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/github"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/logging"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/metrics"
)

// GitHub webhook request headers.
const (
	HeaderEvent     = "X-GitHub-Event"
	HeaderDelivery  = "X-GitHub-Delivery"
	HeaderSignature = "X-Hub-Signature-256"
)

// maxBodyBytes bounds webhook payload size. GitHub caps payloads at 25MB.
const maxBodyBytes = 25 << 20

// Enqueuer publishes accepted jobs to the durable queue.
type Enqueuer interface {
	PublishJob(ctx context.Context, job *github.Job) error
}

// QueueObserver reports queue state for backpressure and readiness.
type QueueObserver interface {
	Depth(ctx context.Context) (int64, error)
	Connected() bool
}

// Handler holds the gateway's collaborators.
type Handler struct {
	secret   string
	maxDepth int64
	queue    Enqueuer
	observer QueueObserver
}

// NewHandler creates the gateway handler.
func NewHandler(secret string, maxDepth int64, queue Enqueuer, observer QueueObserver) *Handler {
	return &Handler{
		secret:   secret,
		maxDepth: maxDepth,
		queue:    queue,
		observer: observer,
	}
}

// HandleWebhook processes POST /webhook.
//
// Order matters: authenticity first, then identity, then allow-listing,
// then backpressure, then enqueue. Unsupported event types are acknowledged
// with 200 so GitHub does not retry them.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Failed to read request body", err)
		metrics.RecordWebhook("error", "")
		return
	}

	// The HMAC covers exactly the bytes received, before any parsing.
	if !verifySignature(h.secret, body, r.Header.Get(HeaderSignature)) {
		logging.Warn().
			Str("remote_addr", sanitizeLogValue(r.RemoteAddr)).
			Msg("Webhook signature verification failed")
		respondError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Signature is missing or invalid", nil)
		metrics.RecordWebhook("invalid_signature", "")
		return
	}

	deliveryID := r.Header.Get(HeaderDelivery)
	if deliveryID == "" {
		respondError(w, http.StatusBadRequest, "MISSING_DELIVERY_ID", "X-GitHub-Delivery header is required", nil)
		metrics.RecordWebhook("error", "")
		return
	}

	eventType := r.Header.Get(HeaderEvent)
	if !github.Supported(eventType) {
		logging.Debug().
			Str("event_type", sanitizeLogValue(eventType)).
			Str("delivery_id", sanitizeLogValue(deliveryID)).
			Msg("Ignoring unsupported event type")
		respondJSON(w, http.StatusOK, &Response{Status: "ignored"})
		// A fixed label keeps the metric series set closed no matter what
		// arrives in the event header.
		metrics.RecordWebhook("ignored", "other")
		return
	}

	if h.saturated(r.Context()) {
		w.Header().Set("Retry-After", "30")
		respondError(w, http.StatusServiceUnavailable, "QUEUE_SATURATED", "Queue is saturated, retry later", nil)
		metrics.RecordWebhook("saturated", eventType)
		return
	}

	// Parse before enqueue so malformed payloads fail fast at the edge.
	if _, err := github.ParseEvent(github.EventType(eventType), body); err != nil {
		respondError(w, http.StatusBadRequest, "MALFORMED_PAYLOAD", "Payload is not valid for the event type", err)
		metrics.RecordWebhook("malformed", eventType)
		return
	}

	job := github.NewJob(deliveryID, github.EventType(eventType), body)
	if err := h.queue.PublishJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "ENQUEUE_FAILED", "Failed to enqueue delivery", err)
		metrics.RecordWebhook("error", eventType)
		return
	}

	logging.Info().
		Str("delivery_id", sanitizeLogValue(deliveryID)).
		Str("event_type", eventType).
		Msg("Webhook queued")
	respondJSON(w, http.StatusOK, &Response{Status: "queued", DeliveryID: deliveryID})
	metrics.RecordWebhook("queued", eventType)
}

// saturated reports whether the stream depth has reached the ceiling.
// Depth read failures fall open: a broken observer must not reject
// deliveries the queue might still absorb.
func (h *Handler) saturated(ctx context.Context) bool {
	depth, err := h.observer.Depth(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Queue depth read failed, accepting delivery")
		return false
	}
	metrics.RecordQueueDepth(depth)
	return depth >= h.maxDepth
}

// HandleHealth processes GET /health (liveness).
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &Response{Status: "ok"})
}

// HandleReady processes GET /health/ready. Readiness reflects broker
// connectivity; a degraded gateway keeps serving liveness.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.observer != nil && h.observer.Connected() {
		respondJSON(w, http.StatusOK, &Response{Status: "ok"})
		return
	}
	respondJSON(w, http.StatusServiceUnavailable, &Response{Status: "degraded"})
}
