// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures the gateway routes.
type RouterOptions struct {
	// RateLimitReqs per RateLimitWindow per client IP on the webhook
	// route. Zero disables the limiter.
	RateLimitReqs   int
	RateLimitWindow time.Duration

	// Timeout bounds request handling end to end.
	Timeout time.Duration
}

// NewRouter assembles the chi router for the gateway.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if opts.Timeout > 0 {
		r.Use(chimw.Timeout(opts.Timeout))
	}

	r.Get("/health", h.HandleHealth)
	r.Get("/health/ready", h.HandleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateLimitReqs > 0 {
			window := opts.RateLimitWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByIP(opts.RateLimitReqs, window))
		}
		r.Post("/webhook", h.HandleWebhook)
	})

	return r
}
