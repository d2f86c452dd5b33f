// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package worker

import (
	"context"
	"errors"
	"time"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/store"
)

// History adapts the event store to the detection package's EventHistory
// interface.
type History struct {
	events *store.EventStore
}

// NewHistory wraps an event store.
func NewHistory(events *store.EventStore) *History {
	return &History{events: events}
}

// LastCreation implements detection.EventHistory. A store miss is reported
// as ok=false rather than an error: an untracked creation is no signal.
func (h *History) LastCreation(ctx context.Context, resourceID string, since time.Time) (time.Time, bool, error) {
	rec, err := h.events.FindCreation(ctx, resourceID, since)
	if errors.Is(err, store.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return rec.EventTimestamp, true, nil
}
