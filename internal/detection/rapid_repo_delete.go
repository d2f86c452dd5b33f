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

// RapidRepoDeleteName identifies the rapid repository deletion rule.
const RapidRepoDeleteName = "RapidRepoDelete"

// RapidRepoDeleteConfig parameterizes the creation-to-deletion window.
type RapidRepoDeleteConfig struct {
	// WindowMinutes is the maximum creation-to-deletion distance that
	// counts as rapid. The comparison truncates to whole minutes and the
	// window is half-open: a deletion exactly WindowMinutes after the
	// creation does not alert.
	WindowMinutes int
}

// DefaultRapidRepoDeleteConfig returns the default 10 minute window.
func DefaultRapidRepoDeleteConfig() RapidRepoDeleteConfig {
	return RapidRepoDeleteConfig{WindowMinutes: 10}
}

// RapidRepoDeleteRule flags repository deletions that follow a tracked
// creation within the window. The evidence is the event history the
// pipeline itself witnessed, not the attacker-controlled payload: a
// deletion with no creation on record is no signal.
type RapidRepoDeleteRule struct {
	cfg     RapidRepoDeleteConfig
	history EventHistory
	now     func() time.Time
}

// NewRapidRepoDeleteRule builds the rule over an event history.
func NewRapidRepoDeleteRule(cfg RapidRepoDeleteConfig, history EventHistory) *RapidRepoDeleteRule {
	return &RapidRepoDeleteRule{cfg: cfg, history: history, now: time.Now}
}

// Name implements Rule.
func (r *RapidRepoDeleteRule) Name() string { return RapidRepoDeleteName }

// EventTypes implements Rule.
func (r *RapidRepoDeleteRule) EventTypes() []github.EventType {
	return []github.EventType{github.EventTypeRepository}
}

// Evaluate implements Rule.
func (r *RapidRepoDeleteRule) Evaluate(ctx context.Context, event *github.Event) (*Alert, error) {
	repo := event.Repository
	if repo == nil || repo.Action != github.ActionDeleted {
		return nil, nil
	}

	deletedAt := r.now().UTC()
	window := time.Duration(r.cfg.WindowMinutes) * time.Minute
	since := deletedAt.Add(-window)

	createdAt, ok, err := r.history.LastCreation(ctx, event.ResourceID(), since)
	if err != nil {
		return nil, fmt.Errorf("look up creation for repo %d: %w", repo.Repository.ID, err)
	}
	if !ok {
		return nil, nil
	}

	minutesBetween := int(deletedAt.Sub(createdAt).Minutes())
	if minutesBetween >= r.cfg.WindowMinutes {
		return nil, nil
	}

	return &Alert{
		RuleName: RapidRepoDeleteName,
		Severity: SeverityCritical,
		Message: fmt.Sprintf("Repository %s deleted %d minutes after creation by %s",
			repo.Repository.FullName, minutesBetween, repo.Sender.Login),
		Metadata: map[string]interface{}{
			"repoName":       repo.Repository.FullName,
			"repoId":         repo.Repository.ID,
			"createdAt":      createdAt.Format(time.RFC3339),
			"deletedAt":      deletedAt.Format(time.RFC3339),
			"minutesBetween": minutesBetween,
			"deletedBy":      repo.Sender.Login,
			"organization":   event.OrganizationLogin(),
		},
	}, nil
}
