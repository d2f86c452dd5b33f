// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// Package queue provides the durable at-least-once delivery pipeline on
// NATS JetStream: publisher, subscriber, stream management and the worker
// router with full-jitter retry and poison-queue middleware.
package queue

import (
	"time"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/config"
)

// PublisherConfig holds publisher settings.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// DefaultPublisherConfig returns production defaults for a publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1, // Unlimited
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024, // 8MB
	}
}

// SubscriberConfig holds subscriber settings.
type SubscriberConfig struct {
	URL              string
	StreamName       string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// SubscriberConfigFrom builds subscriber settings from the app config.
func SubscriberConfigFrom(cfg *config.NATSConfig) SubscriberConfig {
	return SubscriberConfig{
		URL:              cfg.URL,
		StreamName:       cfg.StreamName,
		DurableName:      cfg.DurableName,
		QueueGroup:       cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWait,
		MaxDeliver:       cfg.MaxDeliver,
		MaxAckPending:    cfg.MaxAckPending,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// StreamConfig defines the event stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// StreamConfigFrom builds the stream settings from the app config. The
// poison-queue subjects live inside the stream so dead letters survive
// restarts.
func StreamConfigFrom(cfg *config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            cfg.StreamName,
		Subjects:        []string{"webhooks.>", "dlq.>"},
		MaxAge:          cfg.StreamMaxAge,
		MaxBytes:        10 * 1024 * 1024 * 1024, // 10GB
		MaxMsgs:         -1,                      // Unlimited
		DuplicateWindow: cfg.DuplicateWindow,
		Replicas:        1,
	}
}

// RouterConfig holds worker router settings.
type RouterConfig struct {
	CloseTimeout time.Duration

	// RetryMaxRetries bounds in-process retries per delivery. The backoff
	// before the k-th retry is uniform(0, min(RetryBase*2^k, RetryCap)).
	RetryMaxRetries int
	RetryBase       time.Duration
	RetryCap        time.Duration

	PoisonQueueTopic string
}

// RouterConfigFrom builds router settings from the app config.
func RouterConfigFrom(cfg *config.NATSConfig) RouterConfig {
	return RouterConfig{
		CloseTimeout:     30 * time.Second,
		RetryMaxRetries:  cfg.MaxDeliver,
		RetryBase:        cfg.RetryBase,
		RetryCap:         cfg.RetryCap,
		PoisonQueueTopic: cfg.PoisonQueueTopic,
	}
}

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// ServerConfigFrom builds embedded server settings from the app config.
func ServerConfigFrom(cfg *config.NATSConfig) ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   cfg.MaxMemory,
		JetStreamMaxStore: cfg.MaxStore,
	}
}

// CircuitBreakerConfig holds publish circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
