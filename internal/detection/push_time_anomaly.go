// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/github"
)

// PushTimeAnomalyName identifies the suspicious push hour rule.
const PushTimeAnomalyName = "PushTimeAnomaly"

// PushTimeAnomalyConfig parameterizes the suspicious push window.
type PushTimeAnomalyConfig struct {
	// Timezone is the IANA zone commit timestamps are localized to.
	Timezone string

	// StartHour and EndHour bound the suspicious window as the half-open
	// range [StartHour, EndHour) of local hours.
	StartHour int
	EndHour   int
}

// DefaultPushTimeAnomalyConfig returns the default window of 14:00-16:00 UTC.
func DefaultPushTimeAnomalyConfig() PushTimeAnomalyConfig {
	return PushTimeAnomalyConfig{
		Timezone:  "UTC",
		StartHour: 14,
		EndHour:   16,
	}
}

// PushTimeAnomalyRule flags pushes whose head commit lands inside the
// configured local-hour window. Pushes without a head commit (for example
// branch deletions) are judged by the evaluation time instead.
type PushTimeAnomalyRule struct {
	cfg PushTimeAnomalyConfig
	loc *time.Location
	now func() time.Time
}

// NewPushTimeAnomalyRule builds the rule, resolving the configured zone.
func NewPushTimeAnomalyRule(cfg PushTimeAnomalyConfig) (*PushTimeAnomalyRule, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
	}
	return &PushTimeAnomalyRule{cfg: cfg, loc: loc, now: time.Now}, nil
}

// Name implements Rule.
func (r *PushTimeAnomalyRule) Name() string { return PushTimeAnomalyName }

// EventTypes implements Rule.
func (r *PushTimeAnomalyRule) EventTypes() []github.EventType {
	return []github.EventType{github.EventTypePush}
}

// Evaluate implements Rule.
func (r *PushTimeAnomalyRule) Evaluate(ctx context.Context, event *github.Event) (*Alert, error) {
	push := event.Push
	if push == nil {
		return nil, nil
	}

	ts := event.OccurredAt(r.now())
	localHour := ts.In(r.loc).Hour()

	if localHour < r.cfg.StartHour || localHour >= r.cfg.EndHour {
		return nil, nil
	}

	return &Alert{
		RuleName: PushTimeAnomalyName,
		Severity: SeverityMedium,
		Message: fmt.Sprintf("Push to %s by %s at suspicious local hour %02d (%s)",
			push.Repository.FullName, push.Pusher.Name, localHour, r.cfg.Timezone),
		Metadata: map[string]interface{}{
			"pusher":     push.Pusher.Name,
			"repository": push.Repository.FullName,
			"pushHour":   localHour,
			"timestamp":  ts.Format(time.RFC3339),
			"timezone":   r.cfg.Timezone,
		},
	}, nil
}
