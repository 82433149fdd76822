// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package database is the DuckDB implementation of the canonical catalog
// repository.
//
// # Overview
//
// Movies and shows live in two tables keyed by their canonical key. Each row
// stores the serialized document next to a few scalar columns (title,
// metadata_hash, episode counts, last_synced) so that counts and statistics
// never decode the JSON.
//
// # Files
//
//   - database.go: lifecycle (open, ping, checkpoint, close) and per-key locks
//   - database_connection.go: reconnection with backoff and write retries
//   - database_schema.go: table creation
//   - migrations.go: versioned schema migrations
//   - catalog.go: repository operations (find, upsert, delete, list, stats)
//
// # Usage
//
//	db, err := database.New(database.Config{Path: "/data/catalogd.duckdb"})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	movie, err := db.FindMovie(ctx, "tt0111161")
//	if errors.Is(err, repository.ErrNotFound) {
//	    // not in the catalog
//	}
//
// # Thread Safety
//
// DB is safe for concurrent use. Writes to the same key are serialized by a
// per-key mutex; writes to different keys proceed in parallel and retry on
// DuckDB transaction conflicts.
package database
