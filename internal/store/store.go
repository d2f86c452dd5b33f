// GitHub Sentinel - Security Monitoring for GitHub Webhooks
// Copyright 2026 Elad W. (eladweinfeld7-cell)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eladweinfeld7-cell/github-sentinel

// Package store persists event and alert records in an embedded BadgerDB.
//
// Records live under key prefixes acting as tables, with secondary index
// keys written in the same transaction as the primary record. Event records
// carry a TTL so retention is enforced by the store itself.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/eladweinfeld7-cell/github-sentinel/internal/logging"
)

// Sentinel errors surfaced by the stores.
var (
	// ErrDuplicateDelivery reports an insert whose delivery ID is already
	// recorded. The uniqueness check is authoritative for idempotency.
	ErrDuplicateDelivery = errors.New("delivery already recorded")

	// ErrNotFound reports a lookup that matched nothing.
	ErrNotFound = errors.New("record not found")
)

// Options configures the embedded store.
type Options struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string

	// EventRetention is the TTL for event records and their indexes.
	EventRetention time.Duration

	// GCInterval is the badger value-log GC cadence. Zero disables GC.
	GCInterval time.Duration

	// InMemory runs badger without disk persistence. Test use only.
	InMemory bool
}

// DefaultOptions returns production defaults.
func DefaultOptions(path string) Options {
	return Options{
		Path:           path,
		EventRetention: 3 * time.Hour,
		GCInterval:     10 * time.Minute,
	}
}

// Store owns the badger DB shared by the event and alert stores.
type Store struct {
	db   *badger.DB
	opts Options
}

// Open opens (or creates) the store at the configured path.
func Open(opts Options) (*Store, error) {
	if opts.EventRetention <= 0 {
		opts.EventRetention = 3 * time.Hour
	}

	badgerOpts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithLogger(badgerLogger{})
	if opts.InMemory {
		badgerOpts = badgerOpts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	return &Store{db: db, opts: opts}, nil
}

// Close flushes and closes the underlying DB.
func (s *Store) Close() error {
	return s.db.Close()
}

// Events returns the event store view.
func (s *Store) Events() *EventStore {
	return &EventStore{db: s.db, retention: s.opts.EventRetention}
}

// Alerts returns the alert store view.
func (s *Store) Alerts() *AlertStore {
	return &AlertStore{db: s.db}
}

// StartGC runs badger value-log GC on a ticker until ctx is cancelled.
func (s *Store) StartGC(ctx context.Context) {
	if s.opts.GCInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.opts.GCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Rewrite value-log files with at least half garbage.
				// ErrNoRewrite just means there was nothing to reclaim.
				err := s.db.RunValueLogGC(0.5)
				if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					logging.Warn().Err(err).Msg("Badger value log GC failed")
				}
			}
		}
	}()
}

// badgerLogger routes badger's internal logging into zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}
