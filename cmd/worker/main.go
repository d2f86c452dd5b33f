// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// The worker command consumes queued webhook deliveries, evaluates the
// detection rules and persists the resulting alerts.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/config"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/detection"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/github"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/logging"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/queue"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/store"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/worker"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Worker failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage.
	st, err := store.Open(store.Options{
		Path:           cfg.Store.Path,
		EventRetention: cfg.Store.EventRetention,
		GCInterval:     cfg.Store.GCInterval,
		InMemory:       cfg.Store.InMemory,
	})
	if err != nil {
		return err
	}
	defer st.Close()
	st.StartGC(ctx)

	events := st.Events()
	alerts := st.Alerts()

	// Queue plumbing. The stream is ensured here too so the worker can
	// start before the gateway.
	nc, err := natsgo.Connect(cfg.NATS.URL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	streams, err := queue.NewStreamManager(nc, queue.StreamConfigFrom(&cfg.NATS))
	if err != nil {
		return err
	}
	if _, err := streams.EnsureStream(ctx); err != nil {
		return fmt.Errorf("ensure event stream: %w", err)
	}

	wmLogger := logging.NewWatermillAdapter()

	subscriber, err := queue.NewSubscriber(queue.SubscriberConfigFrom(&cfg.NATS), wmLogger)
	if err != nil {
		return err
	}
	defer subscriber.Close()

	// Poison-queue publisher for deliveries that exhaust their retries.
	poisonPub, err := queue.NewPublisher(queue.DefaultPublisherConfig(cfg.NATS.URL), wmLogger)
	if err != nil {
		return err
	}
	defer poisonPub.Close()

	// Detection rules.
	pushRule, err := detection.NewPushTimeAnomalyRule(detection.PushTimeAnomalyConfig{
		Timezone:  cfg.Detection.PushTimezone,
		StartHour: cfg.Detection.PushStartHour,
		EndHour:   cfg.Detection.PushEndHour,
	})
	if err != nil {
		return err
	}

	engine := detection.NewEngine(
		pushRule,
		detection.NewHackerTeamRule(),
		detection.NewRapidRepoDeleteRule(detection.RapidRepoDeleteConfig{
			WindowMinutes: cfg.Detection.RapidDeleteWindowMinutes,
		}, worker.NewHistory(events)),
	)

	notifiers := []detection.Notifier{detection.NewConsoleNotifier()}
	if cfg.Detection.AlertWebhookURL != "" {
		notifiers = append(notifiers, detection.NewWebhookNotifier(cfg.Detection.AlertWebhookURL))
	}

	processor := worker.NewProcessor(events, alerts, engine, notifiers...)
	handler := worker.NewHandler(processor)

	router, err := queue.NewRouter(queue.RouterConfigFrom(&cfg.NATS), poisonPub.WatermillPublisher(), wmLogger)
	if err != nil {
		return err
	}

	router.AddConsumerHandler(
		"webhook-processor",
		github.TopicPrefix+".>",
		subscriber.WatermillSubscriber(),
		handler.Handle,
	)

	logging.Info().
		Int("rules", len(engine.Rules())).
		Str("stream", cfg.NATS.StreamName).
		Msg("Worker starting")

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("run router: %w", err)
	}

	processed, failed, malformed := handler.Stats()
	logging.Info().
		Int64("processed", processed).
		Int64("failed", failed).
		Int64("malformed", malformed).
		Msg("Worker stopped")
	return nil
}
