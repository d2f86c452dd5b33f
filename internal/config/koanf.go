// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/github-sentinel/config.yaml",
	"/etc/github-sentinel/config.yml",
}

// ConfigPathEnvVar overrides the config file search when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration in three layers:
//
//  1. Defaults: built-in production defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first readable config file, or "" when none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Only explicitly mapped variables are honored so that unrelated process
// environment never leaks into the configuration.
//
// Examples:
//   - GITHUB_WEBHOOK_SECRET -> webhook.secret
//   - NATS_URL -> nats.url
//   - SUSPICIOUS_PUSH_START_HOUR -> detection.push_start_hour
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Webhook ingestion
		"github_webhook_secret":     "webhook.secret",
		"webhook_max_queue_depth":   "webhook.max_queue_depth",
		"webhook_rate_limit_reqs":   "webhook.rate_limit_reqs",
		"webhook_rate_limit_window": "webhook.rate_limit_window",

		// NATS / queue
		"nats_url":                "nats.url",
		"nats_embedded":           "nats.embedded_server",
		"nats_store_dir":          "nats.store_dir",
		"nats_max_memory":         "nats.max_memory",
		"nats_max_store":          "nats.max_store",
		"nats_stream_name":        "nats.stream_name",
		"nats_stream_max_age":     "nats.stream_max_age",
		"nats_duplicate_window":   "nats.duplicate_window",
		"nats_durable_name":       "nats.durable_name",
		"nats_queue_group":        "nats.queue_group",
		"nats_subscribers":        "nats.subscribers_count",
		"nats_ack_wait":           "nats.ack_wait",
		"nats_max_ack_pending":    "nats.max_ack_pending",
		"nats_max_deliver":        "nats.max_deliver",
		"nats_retry_base":         "nats.retry_base",
		"nats_retry_cap":          "nats.retry_cap",
		"nats_poison_queue_topic": "nats.poison_queue_topic",

		// Store
		"store_path":            "store.path",
		"store_event_retention": "store.event_retention",
		"store_gc_interval":     "store.gc_interval",

		// Detection rules
		"suspicious_push_timezone":    "detection.push_timezone",
		"suspicious_push_start_hour":  "detection.push_start_hour",
		"suspicious_push_end_hour":    "detection.push_end_hour",
		"rapid_delete_window_minutes": "detection.rapid_delete_window_minutes",
		"alert_webhook_url":           "detection.alert_webhook_url",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped variables are ignored.
	return ""
}
