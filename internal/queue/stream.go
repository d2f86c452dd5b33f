// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package queue

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamManager handles JetStream stream lifecycle and depth observation.
type StreamManager struct {
	js     jetstream.JetStream
	nc     *nats.Conn
	config StreamConfig
}

// NewStreamManager creates a stream manager over an existing connection.
func NewStreamManager(nc *nats.Conn, cfg StreamConfig) (*StreamManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return &StreamManager{
		js:     js,
		nc:     nc,
		config: cfg,
	}, nil
}

// EnsureStream creates or updates the event stream. The duplicate window
// gives broker-side identity rejection for republished delivery IDs.
func (m *StreamManager) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:       m.config.Name,
		Subjects:   m.config.Subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     m.config.MaxAge,
		MaxBytes:   m.config.MaxBytes,
		MaxMsgs:    m.config.MaxMsgs,
		Duplicates: m.config.DuplicateWindow,
		Replicas:   m.config.Replicas,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}

	_, err := m.js.Stream(ctx, m.config.Name)
	if err == nil {
		stream, err := m.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream: %w", err)
		}
		return stream, nil
	}

	stream, err := m.js.CreateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return stream, nil
}

// Depth returns the worker backlog the gateway uses for backpressure: the
// largest count of undelivered plus unacked messages across the stream's
// consumers. Acked messages stay in the stream until MaxAge expires, so the
// raw stream count overstates the backlog on a retention stream. Before any
// consumer exists every stored message is still unprocessed, so the stream
// count is the backlog.
func (m *StreamManager) Depth(ctx context.Context) (int64, error) {
	stream, err := m.js.Stream(ctx, m.config.Name)
	if err != nil {
		return 0, fmt.Errorf("get stream: %w", err)
	}

	depth := int64(-1)
	lister := stream.ListConsumers(ctx)
	for info := range lister.Info() {
		if backlog := consumerBacklog(info); backlog > depth {
			depth = backlog
		}
	}
	if err := lister.Err(); err != nil {
		return 0, fmt.Errorf("list consumers: %w", err)
	}
	if depth >= 0 {
		return depth, nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("get stream info: %w", err)
	}
	return int64(info.State.Msgs), nil
}

// consumerBacklog counts the messages a consumer has not finished with:
// not yet delivered plus delivered but unacked.
func consumerBacklog(info *jetstream.ConsumerInfo) int64 {
	return int64(info.NumPending) + int64(info.NumAckPending)
}

// Connected reports whether the underlying NATS connection is up.
func (m *StreamManager) Connected() bool {
	return m.nc != nil && m.nc.Status() == nats.CONNECTED
}

// PurgeStream removes all messages. Use with caution.
func (m *StreamManager) PurgeStream(ctx context.Context) error {
	stream, err := m.js.Stream(ctx, m.config.Name)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}
	return stream.Purge(ctx)
}

// DeleteStream removes the stream entirely.
func (m *StreamManager) DeleteStream(ctx context.Context) error {
	return m.js.DeleteStream(ctx, m.config.Name)
}
