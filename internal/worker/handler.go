// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package worker

import (
	"context"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/github"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/logging"
)

// JobProcessor is the processing entry point the handler drives. Satisfied
// by *Processor; tests substitute a mock.
type JobProcessor interface {
	Process(ctx context.Context, job *github.Job) error
}

// Handler bridges watermill messages to the processor. It is registered on
// the queue router as a consumer handler; returning an error triggers the
// router's retry and poison-queue chain.
type Handler struct {
	processor JobProcessor

	processed atomic.Int64
	failed    atomic.Int64
	malformed atomic.Int64
}

// NewHandler creates a message handler over a processor.
func NewHandler(processor JobProcessor) *Handler {
	return &Handler{processor: processor}
}

// Handle implements message.NoPublishHandlerFunc.
func (h *Handler) Handle(msg *message.Message) error {
	job, err := github.UnmarshalJob(msg.Payload)
	if err != nil {
		// An envelope that does not decode will never decode; ack it.
		h.malformed.Add(1)
		logging.Error().
			Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Dropping undecodable job envelope")
		return nil
	}

	if err := h.processor.Process(msg.Context(), job); err != nil {
		h.failed.Add(1)
		return err
	}

	h.processed.Add(1)
	return nil
}

// Stats returns processed, failed and malformed message counts.
func (h *Handler) Stats() (processed, failed, malformed int64) {
	return h.processed.Load(), h.failed.Load(), h.malformed.Load()
}
