// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/github"
)

// HackerTeamName identifies the suspicious team name rule.
const HackerTeamName = "HackerTeam"

// hackerTeamPrefix is matched case-insensitively against new team names.
const hackerTeamPrefix = "hacker"

// HackerTeamRule flags newly created teams whose name starts with "hacker"
// in any casing. Renames and other team actions are ignored.
type HackerTeamRule struct{}

// NewHackerTeamRule builds the rule.
func NewHackerTeamRule() *HackerTeamRule { return &HackerTeamRule{} }

// Name implements Rule.
func (r *HackerTeamRule) Name() string { return HackerTeamName }

// EventTypes implements Rule.
func (r *HackerTeamRule) EventTypes() []github.EventType {
	return []github.EventType{github.EventTypeTeam}
}

// Evaluate implements Rule.
func (r *HackerTeamRule) Evaluate(ctx context.Context, event *github.Event) (*Alert, error) {
	team := event.Team
	if team == nil || team.Action != github.ActionCreated {
		return nil, nil
	}

	if !strings.HasPrefix(strings.ToLower(team.Team.Name), hackerTeamPrefix) {
		return nil, nil
	}

	return &Alert{
		RuleName: HackerTeamName,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("Team %q created by %s matches suspicious name pattern",
			team.Team.Name, team.Sender.Login),
		Metadata: map[string]interface{}{
			"teamName":     team.Team.Name,
			"teamId":       team.Team.ID,
			"creator":      team.Sender.Login,
			"organization": event.OrganizationLogin(),
		},
	}, nil
}
