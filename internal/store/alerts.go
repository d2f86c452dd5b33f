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
	"github.com/google/uuid"
)

// Key prefixes for alert storage.
const (
	alertKeyPrefix       = "alert:"
	alertRuleIdxPrefix   = "alertidx:rule:"
	alertStatusIdxPrefix = "alertidx:status:"
)

// AlertStatusOpen is the initial status of every persisted alert.
const AlertStatusOpen = "open"

// AlertRecord is the persisted form of a raised alert.
type AlertRecord struct {
	ID         string                 `json:"id"`
	RuleName   string                 `json:"rule_name"`
	Severity   string                 `json:"severity"`
	Message    string                 `json:"message"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	DeliveryID string                 `json:"delivery_id"`
	Status     string                 `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AlertStore persists alerts with rule and status indexes for listing.
type AlertStore struct {
	db *badger.DB
}

func alertKey(id string) []byte {
	return []byte(alertKeyPrefix + id)
}

// Insert stores an alert, assigning ID, status and creation time when unset.
func (s *AlertStore) Insert(ctx context.Context, rec *AlertRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = AlertStatusOpen
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal alert record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(alertKey(rec.ID), data); err != nil {
			return fmt.Errorf("set alert: %w", err)
		}

		ts := rec.CreatedAt.UnixNano()
		ruleIdx := []byte(fmt.Sprintf("%s%s:%020d:%s", alertRuleIdxPrefix, rec.RuleName, ts, rec.ID))
		if err := txn.Set(ruleIdx, []byte(rec.ID)); err != nil {
			return fmt.Errorf("set rule index: %w", err)
		}

		statusIdx := []byte(fmt.Sprintf("%s%s:%020d:%s", alertStatusIdxPrefix, rec.Status, ts, rec.ID))
		if err := txn.Set(statusIdx, []byte(rec.ID)); err != nil {
			return fmt.Errorf("set status index: %w", err)
		}

		return nil
	})
}

// Get fetches an alert by ID, or ErrNotFound.
func (s *AlertStore) Get(ctx context.Context, id string) (*AlertRecord, error) {
	var rec AlertRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(alertKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get alert: %w", err)
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

// ListByRule returns up to limit alerts for a rule, newest first.
func (s *AlertStore) ListByRule(ctx context.Context, ruleName string, limit int) ([]*AlertRecord, error) {
	prefix := []byte(alertRuleIdxPrefix + ruleName + ":")
	return s.listByIndex(prefix, limit)
}

// ListByStatus returns up to limit alerts with a status, newest first.
func (s *AlertStore) ListByStatus(ctx context.Context, status string, limit int) ([]*AlertRecord, error) {
	prefix := []byte(alertStatusIdxPrefix + status + ":")
	return s.listByIndex(prefix, limit)
}

func (s *AlertStore) listByIndex(prefix []byte, limit int) ([]*AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(ids) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan alert index: %w", err)
	}

	alerts := make([]*AlertRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(context.Background(), id)
		if err != nil {
			// Index entries may briefly outlive their record.
			continue
		}
		alerts = append(alerts, rec)
	}
	return alerts, nil
}
