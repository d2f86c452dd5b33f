// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package github

import (
	"errors"
	"testing"
	"time"
)

const pushPayload = `{
	"ref": "refs/heads/main",
	"before": "abc123",
	"after": "def456",
	"pusher": {"name": "mallory", "email": "mallory@example.com"},
	"repository": {
		"id": 42,
		"name": "payments",
		"full_name": "acme/payments",
		"private": true,
		"owner": {"login": "acme", "id": 7},
		"created_at": 1600000000
	},
	"head_commit": {
		"id": "def456",
		"message": "tweak config",
		"timestamp": "2026-03-02T14:30:00Z",
		"author": {"name": "Mallory", "email": "mallory@example.com"}
	},
	"commits": [],
	"forced": false,
	"organization": {"login": "acme", "id": 7},
	"sender": {"login": "mallory", "id": 99}
}`

func TestSupported(t *testing.T) {
	tests := []struct {
		eventType string
		want      bool
	}{
		{"push", true},
		{"team", true},
		{"repository", true},
		{"issues", false},
		{"pull_request", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := Supported(tt.eventType); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.eventType, got, tt.want)
		}
	}
}

func TestParseEventPush(t *testing.T) {
	event, err := ParseEvent(EventTypePush, []byte(pushPayload))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}

	if event.Type != EventTypePush {
		t.Errorf("Type = %q, want push", event.Type)
	}
	if event.Push == nil {
		t.Fatal("Push variant not set")
	}
	if event.Team != nil || event.Repository != nil {
		t.Error("non-push variants should be nil")
	}
	if event.Action() != ActionPush {
		t.Errorf("Action() = %q, want %q", event.Action(), ActionPush)
	}
	if event.ResourceID() != "42" {
		t.Errorf("ResourceID() = %q, want 42", event.ResourceID())
	}
	if event.SenderLogin() != "mallory" {
		t.Errorf("SenderLogin() = %q, want mallory", event.SenderLogin())
	}
	if event.OrganizationLogin() != "acme" {
		t.Errorf("OrganizationLogin() = %q, want acme", event.OrganizationLogin())
	}

	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	got := event.OccurredAt(now)
	want := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("OccurredAt() = %v, want head commit time %v", got, want)
	}
}

func TestParseEventUnsupported(t *testing.T) {
	_, err := ParseEvent("issues", []byte(`{}`))
	if !errors.Is(err, ErrUnsupportedEvent) {
		t.Errorf("expected ErrUnsupportedEvent, got %v", err)
	}
}

func TestParseEventMalformed(t *testing.T) {
	if _, err := ParseEvent(EventTypePush, []byte(`{not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestOccurredAtFallbacks(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	// Push without a head commit (branch deletion) uses the given time.
	event, err := ParseEvent(EventTypePush, []byte(`{"ref":"refs/heads/gone","repository":{"id":1},"sender":{"login":"x"}}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if got := event.OccurredAt(now); !got.Equal(now) {
		t.Errorf("OccurredAt() = %v, want fallback %v", got, now)
	}

	// Team events always use the given time.
	event, err = ParseEvent(EventTypeTeam, []byte(`{"action":"created","team":{"id":5,"name":"ops"}}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if got := event.OccurredAt(now); !got.Equal(now) {
		t.Errorf("team OccurredAt() = %v, want %v", got, now)
	}
}

func TestRepositoryCreatedTime(t *testing.T) {
	event, err := ParseEvent(EventTypeRepository, []byte(`{
		"action": "created",
		"repository": {"id": 9, "full_name": "acme/tmp", "created_at": "2026-03-02T10:00:00Z"},
		"sender": {"login": "eve"}
	}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}

	want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if got := event.OccurredAt(now); !got.Equal(want) {
		t.Errorf("OccurredAt() = %v, want created_at %v", got, want)
	}

	// Epoch form, as push payloads embed it.
	repo := Repository{CreatedAt: []byte("1600000000")}
	if got := repo.CreatedTime(); got.Unix() != 1600000000 {
		t.Errorf("CreatedTime() = %v, want epoch 1600000000", got)
	}
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"valid", Job{DeliveryID: "d1", EventType: EventTypePush, Payload: []byte(`{}`)}, false},
		{"missing delivery id", Job{EventType: EventTypePush, Payload: []byte(`{}`)}, true},
		{"unsupported type", Job{DeliveryID: "d1", EventType: "issues", Payload: []byte(`{}`)}, true},
		{"empty payload", Job{DeliveryID: "d1", EventType: EventTypePush}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJobRoundTrip(t *testing.T) {
	job := NewJob("delivery-1", EventTypeTeam, []byte(`{"action":"created","team":{"id":1,"name":"ops"}}`))

	if got, want := job.Topic(), "webhooks.github.team"; got != want {
		t.Errorf("Topic() = %q, want %q", got, want)
	}

	data, err := job.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := UnmarshalJob(data)
	if err != nil {
		t.Fatalf("UnmarshalJob: %v", err)
	}
	if decoded.DeliveryID != "delivery-1" || decoded.EventType != EventTypeTeam {
		t.Errorf("round trip mismatch: %+v", decoded)
	}

	event, err := decoded.Event()
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if event.Team == nil || event.Team.Team.Name != "ops" {
		t.Errorf("decoded event mismatch: %+v", event)
	}
}

func TestUnmarshalJobRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalJob([]byte(`not json`)); err == nil {
		t.Error("expected error for undecodable envelope")
	}
	if _, err := UnmarshalJob([]byte(`{"delivery_id":""}`)); err == nil {
		t.Error("expected validation error for empty envelope")
	}
}
