// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package kvstore keeps the catalog and the placeholder cache in an embedded
// BadgerDB. It is the storage backend for single-node deployments that do
// not want DuckDB, and the durable placeholder cache for every deployment.
//
// Keys are namespaced by prefix:
//
//	movie:<key>         go-json encoded models.Movie
//	show:<key>          go-json encoded models.TVShow (seasons and episodes inline)
//	placeholder:<url>   go-json encoded models.Placeholder, written with a TTL
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/tomtom215/catalogd/internal/logging"
)

const (
	prefixMovie       = "movie:"
	prefixShow        = "show:"
	prefixPlaceholder = "placeholder:"
)

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("kvstore closed")

// Config controls the BadgerDB instance.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps everything in RAM. Used by tests and ephemeral runs.
	InMemory bool `koanf:"in_memory"`

	// SyncWrites fsyncs after every write.
	SyncWrites bool `koanf:"sync_writes"`

	Compression bool `koanf:"compression"`

	// PlaceholderTTL bounds how long a cached placeholder survives without
	// being refreshed. Zero keeps entries forever.
	PlaceholderTTL time.Duration `koanf:"placeholder_ttl"`

	// GCInterval is how often the value log is garbage collected.
	GCInterval time.Duration `koanf:"gc_interval" validate:"omitempty,min=1m"`

	// GCRatio is the discard ratio handed to RunValueLogGC.
	GCRatio float64 `koanf:"gc_ratio" validate:"omitempty,gt=0,lt=1"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:           "/data/catalogd-kv",
		SyncWrites:     true,
		Compression:    true,
		PlaceholderTTL: 30 * 24 * time.Hour,
		GCInterval:     10 * time.Minute,
		GCRatio:        0.5,
	}
}

// Store wraps one BadgerDB.
type Store struct {
	db     *badger.DB
	cfg    Config
	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the store.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites && !cfg.InMemory
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	if cfg.GCRatio == 0 {
		cfg.GCRatio = 0.5
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", opts.SyncWrites).
		Msg("Key-value store opened")
	return &Store{db: db, cfg: cfg}, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.db.IsClosed() {
		return ErrStoreClosed
	}
	return nil
}

// view and update run fn unless the store is closed.
func (s *Store) view(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

// scan calls fn for every key under prefix, in key order.
func (s *Store) scan(ctx context.Context, prefix string, withValues bool, fn func(key string, item *badger.Item) error) error {
	return s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = withValues
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			item := it.Item()
			if err := fn(string(item.Key()[len(prefix):]), item); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunGC collects the value log until BadgerDB reports nothing to rewrite.
func (s *Store) RunGC() error {
	if s.cfg.InMemory {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	for {
		err := s.db.RunValueLogGC(s.cfg.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Serve runs periodic value log GC until ctx is done. It satisfies
// suture.Service.
func (s *Store) Serve(ctx context.Context) error {
	interval := s.cfg.GCInterval
	if interval <= 0 {
		interval = DefaultConfig().GCInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				if errors.Is(err, ErrStoreClosed) {
					return err
				}
				logging.Warn().Err(err).Msg("Value log GC failed")
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *Store) String() string {
	return "kvstore-gc"
}
