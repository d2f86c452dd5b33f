// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package detection

import (
	"context"
	"sync"
	"time"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/github"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/logging"
	"github.com/eladweinfeld7-cell/github-sentinel/internal/metrics"
)

// Engine evaluates a fixed set of rules against events. Rules applicable to
// an event run concurrently; a failing or panicking rule is logged and
// isolated so the remaining rules still report their matches.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewEngine creates an engine with the given rule registry.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Register adds a rule to the registry.
func (e *Engine) Register(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
}

// Rules returns a snapshot of the registry.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every rule applicable to the event's type and returns the
// alerts that matched. The order of returned alerts is unspecified.
func (e *Engine) Evaluate(ctx context.Context, event *github.Event) []*Alert {
	applicable := e.applicableRules(event.Type)
	if len(applicable) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		alerts []*Alert
	)

	for _, rule := range applicable {
		wg.Add(1)
		go func(r Rule) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					logging.Error().
						Str("rule", r.Name()).
						Interface("panic", rec).
						Msg("Rule panicked during evaluation")
				}
			}()

			start := time.Now()
			alert, err := r.Evaluate(ctx, event)
			metrics.RuleEvaluationDuration.WithLabelValues(r.Name()).Observe(time.Since(start).Seconds())

			if err != nil {
				logging.Error().
					Err(err).
					Str("rule", r.Name()).
					Str("event_type", string(event.Type)).
					Msg("Rule evaluation failed")
				return
			}
			if alert == nil {
				return
			}

			mu.Lock()
			alerts = append(alerts, alert)
			mu.Unlock()
		}(rule)
	}

	wg.Wait()
	return alerts
}

// applicableRules filters the registry by event type.
func (e *Engine) applicableRules(eventType github.EventType) []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []Rule
	for _, rule := range e.rules {
		for _, t := range rule.EventTypes() {
			if t == eventType {
				out = append(out, rule)
				break
			}
		}
	}
	return out
}
