// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for event storage.
const (
	eventKeyPrefix    = "event:"
	eventIdxKeyPrefix = "eventidx:"
)

// EventRecord is the persisted form of a processed delivery.
type EventRecord struct {
	DeliveryID        string          `json:"delivery_id"`
	EventType         string          `json:"event_type"`
	Action            string          `json:"action"`
	ResourceID        string          `json:"resource_id"`
	EventTimestamp    time.Time       `json:"event_timestamp"`
	Payload           json.RawMessage `json:"payload"`
	SenderLogin       string          `json:"sender_login,omitempty"`
	OrganizationLogin string          `json:"organization_login,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// EventStore persists event records with uniqueness on the delivery ID and
// a (resource, action, time) index for history lookups.
type EventStore struct {
	db        *badger.DB
	retention time.Duration
}

func eventKey(deliveryID string) []byte {
	return []byte(eventKeyPrefix + deliveryID)
}

// eventIdxKey orders records by event time within a (resource, action)
// group. The zero-padded nanosecond timestamp keeps byte order equal to
// time order so prefix iteration scans chronologically.
func eventIdxKey(resourceID, action string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%020d", eventIdxKeyPrefix, resourceID, action, ts.UnixNano()))
}

func eventIdxPrefix(resourceID, action string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", eventIdxKeyPrefix, resourceID, action))
}

// Insert stores a record, failing with ErrDuplicateDelivery when the
// delivery ID is already present.
//
// The uniqueness check is a read inside the update transaction. Badger runs
// serializable snapshot isolation, so two concurrent inserts of the same
// delivery ID cannot both commit; the loser fails with ErrConflict and is
// reported as a duplicate after a re-check.
func (s *EventStore) Insert(ctx context.Context, rec *EventRecord) error {
	if rec.DeliveryID == "" {
		return fmt.Errorf("insert event: empty delivery id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := eventKey(rec.DeliveryID)
		_, getErr := txn.Get(key)
		if getErr == nil {
			return ErrDuplicateDelivery
		}
		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return fmt.Errorf("check delivery id: %w", getErr)
		}

		entry := badger.NewEntry(key, data).WithTTL(s.retention)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set event: %w", err)
		}

		idx := badger.NewEntry(
			eventIdxKey(rec.ResourceID, rec.Action, rec.EventTimestamp),
			[]byte(rec.DeliveryID),
		).WithTTL(s.retention)
		if err := txn.SetEntry(idx); err != nil {
			return fmt.Errorf("set event index: %w", err)
		}

		return nil
	})

	if errors.Is(err, badger.ErrConflict) {
		exists, checkErr := s.Exists(ctx, rec.DeliveryID)
		if checkErr == nil && exists {
			return ErrDuplicateDelivery
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return err
}

// Exists reports whether a delivery ID has been recorded.
func (s *EventStore) Exists(ctx context.Context, deliveryID string) (bool, error) {
	var exists bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(eventKey(deliveryID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		exists = true
		return nil
	})
	return exists, err
}

// Get fetches a record by delivery ID, or ErrNotFound.
func (s *EventStore) Get(ctx context.Context, deliveryID string) (*EventRecord, error) {
	var rec EventRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(deliveryID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindCreation returns the newest "created" record for the resource whose
// event time is at or after since, or ErrNotFound when the store has no
// such record. Used by the rapid-delete rule; a miss means the creation was
// never witnessed (or has aged out) and is treated as no signal.
func (s *EventStore) FindCreation(ctx context.Context, resourceID string, since time.Time) (*EventRecord, error) {
	var deliveryID string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := eventIdxPrefix(resourceID, "created")

		// Reverse iteration: seek just past the prefix range, then walk
		// backwards so the first hit is the newest record.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			ts, ok := parseIdxTimestamp(item.Key(), prefix)
			if !ok {
				continue
			}
			if ts.Before(since) {
				// Keys are time-ordered; everything further back is older.
				return ErrNotFound
			}
			return item.Value(func(val []byte) error {
				deliveryID = string(val)
				return nil
			})
		}
		return ErrNotFound
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, deliveryID)
}

// parseIdxTimestamp recovers the event time from an index key.
func parseIdxTimestamp(key, prefix []byte) (time.Time, bool) {
	if len(key) <= len(prefix) {
		return time.Time{}, false
	}
	var nanos int64
	if _, err := fmt.Sscanf(string(key[len(prefix):]), "%d", &nanos); err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos).UTC(), true
}
