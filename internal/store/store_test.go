// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true, EventRetention: time.Hour})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func eventRecord(deliveryID, action string, ts time.Time) *EventRecord {
	return &EventRecord{
		DeliveryID:     deliveryID,
		EventType:      "repository",
		Action:         action,
		ResourceID:     "42",
		EventTimestamp: ts,
		Payload:        []byte(`{}`),
		SenderLogin:    "eve",
	}
}

func TestEventInsertAndGet(t *testing.T) {
	events := testStore(t).Events()
	ctx := context.Background()
	ts := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	if err := events.Insert(ctx, eventRecord("d-1", "created", ts)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	exists, err := events.Exists(ctx, "d-1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("inserted delivery should exist")
	}

	rec, err := events.Get(ctx, "d-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Action != "created" || rec.ResourceID != "42" || !rec.EventTimestamp.Equal(ts) {
		t.Errorf("record = %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped on insert")
	}

	if _, err := events.Get(ctx, "d-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get miss = %v, want ErrNotFound", err)
	}
	exists, err = events.Exists(ctx, "d-missing")
	if err != nil || exists {
		t.Errorf("Exists miss = %v, %v", exists, err)
	}
}

func TestEventInsertRejectsDuplicate(t *testing.T) {
	events := testStore(t).Events()
	ctx := context.Background()
	ts := time.Now().UTC()

	if err := events.Insert(ctx, eventRecord("d-dup", "created", ts)); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	err := events.Insert(ctx, eventRecord("d-dup", "created", ts))
	if !errors.Is(err, ErrDuplicateDelivery) {
		t.Fatalf("second Insert = %v, want ErrDuplicateDelivery", err)
	}
}

func TestEventInsertRejectsEmptyDeliveryID(t *testing.T) {
	events := testStore(t).Events()
	if err := events.Insert(context.Background(), eventRecord("", "created", time.Now())); err == nil {
		t.Fatal("expected error for empty delivery id")
	}
}

func TestFindCreation(t *testing.T) {
	events := testStore(t).Events()
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	seed := []struct {
		id     string
		action string
		ts     time.Time
	}{
		{"d-old", "created", base.Add(-2 * time.Hour)},
		{"d-new", "created", base.Add(-5 * time.Minute)},
		{"d-del", "deleted", base.Add(-3 * time.Minute)},
	}
	for _, s := range seed {
		if err := events.Insert(ctx, eventRecord(s.id, s.action, s.ts)); err != nil {
			t.Fatalf("Insert %s: %v", s.id, err)
		}
	}

	t.Run("newest creation in range", func(t *testing.T) {
		rec, err := events.FindCreation(ctx, "42", base.Add(-10*time.Minute))
		if err != nil {
			t.Fatalf("FindCreation: %v", err)
		}
		if rec.DeliveryID != "d-new" {
			t.Errorf("DeliveryID = %q, want d-new", rec.DeliveryID)
		}
	})

	t.Run("wider range still returns newest", func(t *testing.T) {
		rec, err := events.FindCreation(ctx, "42", base.Add(-3*time.Hour))
		if err != nil {
			t.Fatalf("FindCreation: %v", err)
		}
		if rec.DeliveryID != "d-new" {
			t.Errorf("DeliveryID = %q, want d-new", rec.DeliveryID)
		}
	})

	t.Run("nothing in range", func(t *testing.T) {
		_, err := events.FindCreation(ctx, "42", base.Add(-time.Minute))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("unknown resource", func(t *testing.T) {
		_, err := events.FindCreation(ctx, "999", base.Add(-time.Hour))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("deletions do not count as creations", func(t *testing.T) {
		// d-del is newer than d-new but indexed under another action.
		rec, err := events.FindCreation(ctx, "42", base.Add(-10*time.Minute))
		if err != nil {
			t.Fatalf("FindCreation: %v", err)
		}
		if rec.Action != "created" {
			t.Errorf("Action = %q, want created", rec.Action)
		}
	})
}

func TestAlertInsertAssignsDefaults(t *testing.T) {
	alerts := testStore(t).Alerts()
	ctx := context.Background()

	rec := &AlertRecord{
		RuleName:   "HackerTeam",
		Severity:   "high",
		Message:    "Team \"hackers\" created",
		DeliveryID: "d-1",
	}
	if err := alerts.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rec.ID == "" {
		t.Error("ID should be assigned")
	}
	if rec.Status != AlertStatusOpen {
		t.Errorf("Status = %q, want open", rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}

	got, err := alerts.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RuleName != "HackerTeam" || got.DeliveryID != "d-1" {
		t.Errorf("record = %+v", got)
	}
}

func TestAlertListing(t *testing.T) {
	alerts := testStore(t).Alerts()
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	seed := []*AlertRecord{
		{RuleName: "HackerTeam", Severity: "high", DeliveryID: "d-1", CreatedAt: base},
		{RuleName: "HackerTeam", Severity: "high", DeliveryID: "d-2", CreatedAt: base.Add(time.Minute)},
		{RuleName: "RapidRepoDelete", Severity: "critical", DeliveryID: "d-3", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, rec := range seed {
		if err := alerts.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	t.Run("by rule newest first", func(t *testing.T) {
		got, err := alerts.ListByRule(ctx, "HackerTeam", 10)
		if err != nil {
			t.Fatalf("ListByRule: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].DeliveryID != "d-2" || got[1].DeliveryID != "d-1" {
			t.Errorf("order = %s, %s", got[0].DeliveryID, got[1].DeliveryID)
		}
	})

	t.Run("by rule with limit", func(t *testing.T) {
		got, err := alerts.ListByRule(ctx, "HackerTeam", 1)
		if err != nil {
			t.Fatalf("ListByRule: %v", err)
		}
		if len(got) != 1 || got[0].DeliveryID != "d-2" {
			t.Errorf("got = %+v", got)
		}
	})

	t.Run("by status spans rules", func(t *testing.T) {
		got, err := alerts.ListByStatus(ctx, AlertStatusOpen, 10)
		if err != nil {
			t.Fatalf("ListByStatus: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		if got[0].DeliveryID != "d-3" {
			t.Errorf("newest = %s, want d-3", got[0].DeliveryID)
		}
	})

	t.Run("unknown rule is empty", func(t *testing.T) {
		got, err := alerts.ListByRule(ctx, "NoSuchRule", 10)
		if err != nil {
			t.Fatalf("ListByRule: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got = %+v, want empty", got)
		}
	})
}
