// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// Package config defines the sentinel configuration tree and its koanf-based
// loader. Precedence is ENV > config file > built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for both the gateway and the worker.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Webhook   WebhookConfig   `koanf:"webhook"`
	NATS      NATSConfig      `koanf:"nats"`
	Store     StoreConfig     `koanf:"store"`
	Detection DetectionConfig `koanf:"detection"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the gateway HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// WebhookConfig holds webhook ingestion settings.
type WebhookConfig struct {
	// Secret is the shared HMAC-SHA256 secret configured on the GitHub side.
	// Required; the gateway refuses to start without it.
	Secret string `koanf:"secret"`

	// MaxQueueDepth is the backpressure ceiling. Deliveries arriving while
	// the stream holds at least this many messages are rejected with 503.
	MaxQueueDepth int64 `koanf:"max_queue_depth" validate:"min=1"`

	// RateLimitReqs / RateLimitWindow bound the per-IP request rate on the
	// webhook route. RateLimitReqs = 0 disables the limiter.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// NATSConfig holds NATS JetStream settings shared by gateway and worker.
type NATSConfig struct {
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	StreamName      string        `koanf:"stream_name"`
	StreamMaxAge    time.Duration `koanf:"stream_max_age"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count" validate:"min=1"`
	AckWait          time.Duration `koanf:"ack_wait"`
	MaxAckPending    int           `koanf:"max_ack_pending"`

	// MaxDeliver bounds broker redeliveries per message. Together with the
	// in-process retry middleware this caps total processing attempts.
	MaxDeliver int `koanf:"max_deliver" validate:"min=1"`

	// RetryBase and RetryCap parameterize the full-jitter backoff: each
	// retry sleeps uniform(0, min(RetryBase*2^attempt, RetryCap)).
	RetryBase time.Duration `koanf:"retry_base"`
	RetryCap  time.Duration `koanf:"retry_cap"`

	PoisonQueueTopic string `koanf:"poison_queue_topic"`
}

// StoreConfig holds the embedded badger store settings.
type StoreConfig struct {
	Path string `koanf:"path"`

	// EventRetention is the TTL applied to event records and their index
	// entries. Expired records stop serving idempotency and history lookups.
	EventRetention time.Duration `koanf:"event_retention"`

	GCInterval time.Duration `koanf:"gc_interval"`

	// InMemory runs badger without disk persistence. Test use only.
	InMemory bool `koanf:"in_memory"`
}

// DetectionConfig holds rule parameters.
type DetectionConfig struct {
	// PushTimezone is the IANA zone used to localize commit timestamps
	// before the suspicious-hour check.
	PushTimezone string `koanf:"push_timezone"`

	// PushStartHour / PushEndHour bound the suspicious push window as the
	// half-open hour range [start, end).
	PushStartHour int `koanf:"push_start_hour" validate:"min=0,max=23"`
	PushEndHour   int `koanf:"push_end_hour" validate:"min=1,max=24"`

	// RapidDeleteWindowMinutes is the creation-to-deletion window that
	// flags a repository deletion as rapid.
	RapidDeleteWindowMinutes int `koanf:"rapid_delete_window_minutes" validate:"min=1"`

	// AlertWebhookURL, when set, enables the outbound webhook notifier.
	AlertWebhookURL string `koanf:"alert_webhook_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with production defaults. These are applied
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Webhook: WebhookConfig{
			Secret:          "",
			MaxQueueDepth:   10000,
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
		NATS: NATSConfig{
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   false,
			StoreDir:         "/data/nats/jetstream",
			MaxMemory:        1 << 30,  // 1GB
			MaxStore:         10 << 30, // 10GB
			StreamName:       "GITHUB_EVENTS",
			StreamMaxAge:     7 * 24 * time.Hour,
			DuplicateWindow:  10 * time.Minute,
			DurableName:      "sentinel-worker",
			QueueGroup:       "workers",
			SubscribersCount: 4,
			AckWait:          30 * time.Second,
			MaxAckPending:    1000,
			MaxDeliver:       5,
			RetryBase:        1 * time.Second,
			RetryCap:         30 * time.Second,
			PoisonQueueTopic: "dlq.webhooks",
		},
		Store: StoreConfig{
			Path:           "/data/sentinel",
			EventRetention: 3 * time.Hour,
			GCInterval:     10 * time.Minute,
			InMemory:       false,
		},
		Detection: DetectionConfig{
			PushTimezone:             "UTC",
			PushStartHour:            14,
			PushEndHour:              16,
			RapidDeleteWindowMinutes: 10,
			AlertWebhookURL:          "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime. Field-range checks run through validator tags; cross-field rules
// are checked by hand.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if c.Webhook.Secret == "" {
		return fmt.Errorf("config validation: webhook.secret is required (GITHUB_WEBHOOK_SECRET)")
	}
	if c.Detection.PushStartHour >= c.Detection.PushEndHour {
		return fmt.Errorf("config validation: detection.push_start_hour (%d) must be before push_end_hour (%d)",
			c.Detection.PushStartHour, c.Detection.PushEndHour)
	}
	if c.NATS.RetryBase <= 0 || c.NATS.RetryCap < c.NATS.RetryBase {
		return fmt.Errorf("config validation: nats.retry_base must be positive and <= nats.retry_cap")
	}
	if _, err := loadLocation(c.Detection.PushTimezone); err != nil {
		return fmt.Errorf("config validation: detection.push_timezone: %w", err)
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
