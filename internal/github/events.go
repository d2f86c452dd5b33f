// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// Package github defines the webhook payload types the sentinel understands
// and the tagged event union shared by the gateway and the worker.
package github

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// EventType identifies a supported webhook event category.
type EventType string

// Supported event types. Deliveries of any other type are acknowledged and
// dropped at the gateway.
const (
	EventTypePush       EventType = "push"
	EventTypeTeam       EventType = "team"
	EventTypeRepository EventType = "repository"
)

// Repository actions with detection significance.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"

	// ActionPush is the synthetic action recorded for push events, which
	// carry no action field of their own.
	ActionPush = "push"
)

// ErrUnsupportedEvent is returned when an event type outside the allow-list
// reaches parsing.
var ErrUnsupportedEvent = fmt.Errorf("unsupported event type")

// Supported reports whether the raw event type header names an allow-listed
// event.
func Supported(eventType string) bool {
	switch EventType(eventType) {
	case EventTypePush, EventTypeTeam, EventTypeRepository:
		return true
	default:
		return false
	}
}

// User is a GitHub account reference as it appears in webhook payloads.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// Organization is the org context of a delivery, when present.
type Organization struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// Repository describes the repository a delivery concerns.
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	Owner    User   `json:"owner"`

	// CreatedAt is RFC 3339 on repository events. Push events carry an
	// epoch integer here instead, so it stays raw until needed.
	CreatedAt json.RawMessage `json:"created_at,omitempty"`
}

// CreatedTime parses CreatedAt, handling both the RFC 3339 and epoch forms.
// The zero time is returned when the field is absent or unparseable.
func (r *Repository) CreatedTime() time.Time {
	if len(r.CreatedAt) == 0 {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(r.CreatedAt, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		return time.Time{}
	}
	var epoch int64
	if err := json.Unmarshal(r.CreatedAt, &epoch); err == nil {
		return time.Unix(epoch, 0).UTC()
	}
	return time.Time{}
}

// Commit is a single commit in a push payload.
type Commit struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Author    struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"author"`
}

// Time parses the commit timestamp. ok is false when the field is missing
// or malformed.
func (c *Commit) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, c.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PushEvent is the payload of a push delivery.
type PushEvent struct {
	Ref    string `json:"ref"`
	Before string `json:"before"`
	After  string `json:"after"`
	Pusher struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"pusher"`
	Repository   Repository    `json:"repository"`
	HeadCommit   *Commit       `json:"head_commit"`
	Commits      []Commit      `json:"commits"`
	Forced       bool          `json:"forced"`
	Organization *Organization `json:"organization"`
	Sender       User          `json:"sender"`
}

// Team describes the team a team delivery concerns.
type Team struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
	Permission  string `json:"permission"`
}

// TeamEvent is the payload of a team delivery.
type TeamEvent struct {
	Action       string        `json:"action"`
	Team         Team          `json:"team"`
	Organization *Organization `json:"organization"`
	Sender       User          `json:"sender"`
}

// RepositoryEvent is the payload of a repository delivery.
type RepositoryEvent struct {
	Action       string        `json:"action"`
	Repository   Repository    `json:"repository"`
	Organization *Organization `json:"organization"`
	Sender       User          `json:"sender"`
}

// Event is the tagged union over the supported payloads. Exactly one variant
// is set, identified by Type. Construct via ParseEvent so the invariant
// holds.
type Event struct {
	Type       EventType
	Push       *PushEvent
	Team       *TeamEvent
	Repository *RepositoryEvent
}

// ParseEvent decodes a raw webhook body into the variant named by eventType.
func ParseEvent(eventType EventType, payload []byte) (*Event, error) {
	switch eventType {
	case EventTypePush:
		var p PushEvent
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("parse push payload: %w", err)
		}
		return &Event{Type: EventTypePush, Push: &p}, nil
	case EventTypeTeam:
		var t TeamEvent
		if err := json.Unmarshal(payload, &t); err != nil {
			return nil, fmt.Errorf("parse team payload: %w", err)
		}
		return &Event{Type: EventTypeTeam, Team: &t}, nil
	case EventTypeRepository:
		var r RepositoryEvent
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("parse repository payload: %w", err)
		}
		return &Event{Type: EventTypeRepository, Repository: &r}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEvent, eventType)
	}
}

// Action returns the normalized action for the event. Push events have no
// action field and report "push".
func (e *Event) Action() string {
	switch e.Type {
	case EventTypePush:
		return ActionPush
	case EventTypeTeam:
		return e.Team.Action
	case EventTypeRepository:
		return e.Repository.Action
	default:
		return ""
	}
}

// ResourceID returns the primary resource identifier: the repository ID for
// push and repository events, the team ID for team events.
func (e *Event) ResourceID() string {
	switch e.Type {
	case EventTypePush:
		return fmt.Sprintf("%d", e.Push.Repository.ID)
	case EventTypeTeam:
		return fmt.Sprintf("%d", e.Team.Team.ID)
	case EventTypeRepository:
		return fmt.Sprintf("%d", e.Repository.Repository.ID)
	default:
		return ""
	}
}

// OccurredAt returns the best-known event time: the head commit timestamp
// for pushes, the repository creation time for repository events that carry
// one, otherwise the supplied processing time.
func (e *Event) OccurredAt(now time.Time) time.Time {
	switch e.Type {
	case EventTypePush:
		if e.Push.HeadCommit != nil {
			if t, ok := e.Push.HeadCommit.Time(); ok {
				return t
			}
		}
		return now
	case EventTypeTeam:
		return now
	case EventTypeRepository:
		if t := e.Repository.Repository.CreatedTime(); !t.IsZero() {
			return t
		}
		return now
	default:
		return now
	}
}

// SenderLogin returns the login of the account that triggered the delivery.
func (e *Event) SenderLogin() string {
	switch e.Type {
	case EventTypePush:
		return e.Push.Sender.Login
	case EventTypeTeam:
		return e.Team.Sender.Login
	case EventTypeRepository:
		return e.Repository.Sender.Login
	default:
		return ""
	}
}

// OrganizationLogin returns the org login, or "" when the delivery carries
// no org context.
func (e *Event) OrganizationLogin() string {
	var org *Organization
	switch e.Type {
	case EventTypePush:
		org = e.Push.Organization
	case EventTypeTeam:
		org = e.Team.Organization
	case EventTypeRepository:
		org = e.Repository.Organization
	}
	if org == nil {
		return ""
	}
	return org.Login
}
