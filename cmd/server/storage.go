// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package main

import (
	"fmt"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/config"
	"github.com/tomtom215/catalogd/internal/database"
	"github.com/tomtom215/catalogd/internal/facets"
	"github.com/tomtom215/catalogd/internal/kvstore"
	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/repository"
)

// storage is the canonical store plus the placeholder cache.
type storage struct {
	repo         repository.Repository
	placeholders facets.PlaceholderCache

	// kv is nil for the memory backend.
	kv *kvstore.Store
}

// Close releases the repository and the key-value store.
func (s *storage) Close() error {
	err := s.repo.Close()
	if s.kv != nil {
		// the badger catalog shares kv and is already closed
		if kerr := s.kv.Close(); kerr != nil && err == nil {
			err = kerr
		}
	}
	return err
}

// openStorage opens the configured backend. Placeholders persist in badger
// for the duckdb and badger backends and live in memory otherwise.
func openStorage(cfg *config.Config, hot cache.Cacher) (*storage, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		logging.Warn().Msg("Memory storage backend selected; the catalog is lost on restart")
		return &storage{
			repo:         repository.NewMemory(),
			placeholders: facets.NewMemoryPlaceholderCache(hot),
		}, nil
	}

	kv, err := kvstore.Open(cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	s := &storage{
		kv:           kv,
		placeholders: kvstore.NewPlaceholders(kv, hot),
	}

	switch cfg.Storage.Backend {
	case config.BackendBadger:
		s.repo = kvstore.NewCatalog(kv)
	default:
		db, err := database.New(cfg.Storage.DuckDB)
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("open duckdb catalog: %w", err)
		}
		s.repo = db
	}
	return s, nil
}
