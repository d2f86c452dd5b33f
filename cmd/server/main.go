// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// The server command runs the ingestion gateway: it authenticates GitHub
// webhook deliveries and enqueues them on the durable event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/api"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/config"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/logging"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/queue"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Gateway failed")
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

	natsURL := cfg.NATS.URL

	// Optional embedded broker for single-binary deployments.
	var embedded *queue.EmbeddedServer
	if cfg.NATS.EmbeddedServer {
		embedded, err = queue.NewEmbeddedServer(queue.ServerConfigFrom(&cfg.NATS))
		if err != nil {
			return fmt.Errorf("start embedded NATS server: %w", err)
		}
		natsURL = embedded.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS shutdown incomplete")
			}
		}()
	}

	nc, err := natsgo.Connect(natsURL,
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
	logging.Info().Str("stream", cfg.NATS.StreamName).Msg("Event stream ready")

	publisher, err := queue.NewPublisher(queue.DefaultPublisherConfig(natsURL), logging.NewWatermillAdapter())
	if err != nil {
		return err
	}
	defer publisher.Close()
	publisher.SetCircuitBreaker(queue.NewCircuitBreaker(queue.DefaultCircuitBreakerConfig("webhook-publish")))

	handler := api.NewHandler(cfg.Webhook.Secret, cfg.Webhook.MaxQueueDepth, publisher, streams)
	router := api.NewRouter(handler, api.RouterOptions{
		RateLimitReqs:   cfg.Webhook.RateLimitReqs,
		RateLimitWindow: cfg.Webhook.RateLimitWindow,
		Timeout:         cfg.Server.Timeout,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("Gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
