// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// createTables creates the catalog tables. Documents are stored whole as
// JSON; the scalar columns exist for listing and statistics.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, q := range db.getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (db *DB) getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS movies (
			key TEXT PRIMARY KEY,
			title TEXT,
			doc JSON NOT NULL,
			video_url TEXT,
			metadata_hash TEXT,
			sync_version INTEGER NOT NULL DEFAULT 0,
			last_synced TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS shows (
			key TEXT PRIMARY KEY,
			title TEXT,
			doc JSON NOT NULL,
			season_count INTEGER NOT NULL DEFAULT 0,
			episode_count INTEGER NOT NULL DEFAULT 0,
			sync_version INTEGER NOT NULL DEFAULT 0,
			last_synced TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}
}
