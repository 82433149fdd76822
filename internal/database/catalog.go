// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogd/internal/metrics"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/repository"
	"github.com/tomtom215/catalogd/internal/syncerr"
)

const backendName = "duckdb"

func observe(op string, start time.Time, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		err = nil
	}
	metrics.RecordRepositoryOperation(backendName, op, time.Since(start), err)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}

// FindMovie implements repository.Repository.
func (db *DB) FindMovie(ctx context.Context, key string) (movie *models.Movie, err error) {
	start := time.Now()
	defer func() { observe("find_movie", start, err) }()

	var doc []byte
	err = db.withRetry(ctx, func() error {
		return db.conn.QueryRowContext(ctx, `SELECT CAST(doc AS TEXT) FROM movies WHERE key = ?`, key).Scan(&doc)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movie %q: %w", key, repository.ErrNotFound)
	}
	if err != nil {
		return nil, syncerr.NewPersistenceError("find_movie", key, err)
	}

	movie = &models.Movie{}
	if err := json.Unmarshal(doc, movie); err != nil {
		return nil, syncerr.NewValidationError(key, "decode stored movie", err)
	}
	movie.Key = key
	return movie, nil
}

// FindShow implements repository.Repository.
func (db *DB) FindShow(ctx context.Context, key string) (show *models.TVShow, err error) {
	start := time.Now()
	defer func() { observe("find_show", start, err) }()

	var doc []byte
	err = db.withRetry(ctx, func() error {
		return db.conn.QueryRowContext(ctx, `SELECT CAST(doc AS TEXT) FROM shows WHERE key = ?`, key).Scan(&doc)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("show %q: %w", key, repository.ErrNotFound)
	}
	if err != nil {
		return nil, syncerr.NewPersistenceError("find_show", key, err)
	}

	show = &models.TVShow{}
	if err := json.Unmarshal(doc, show); err != nil {
		return nil, syncerr.NewValidationError(key, "decode stored show", err)
	}
	show.Key = key
	return show, nil
}

// UpsertMovie implements repository.Repository.
func (db *DB) UpsertMovie(ctx context.Context, key string, movie *models.Movie) (err error) {
	start := time.Now()
	defer func() { observe("upsert_movie", start, err) }()

	stored := movie.Clone()
	stored.Key = key
	doc, err := json.Marshal(stored)
	if err != nil {
		return syncerr.NewValidationError(key, "encode movie", err)
	}

	unlock := db.lockKey("movie:" + key)
	defer unlock()

	err = db.withRetry(ctx, func() error {
		_, execErr := db.conn.ExecContext(ctx, `
			INSERT INTO movies (key, title, doc, video_url, metadata_hash, sync_version, last_synced, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE SET
				title = excluded.title,
				doc = excluded.doc,
				video_url = excluded.video_url,
				metadata_hash = excluded.metadata_hash,
				sync_version = excluded.sync_version,
				last_synced = excluded.last_synced,
				updated_at = CURRENT_TIMESTAMP`,
			key, stored.Title, string(doc), stored.VideoURL, stored.MetadataHash, stored.SyncVersion, nullTime(stored.LastSynced))
		return execErr
	})
	if err != nil {
		return syncerr.NewPersistenceError("upsert_movie", key, err)
	}
	return nil
}

// UpsertShow implements repository.Repository.
func (db *DB) UpsertShow(ctx context.Context, key string, show *models.TVShow) (err error) {
	start := time.Now()
	defer func() { observe("upsert_show", start, err) }()

	stored := show.Clone()
	stored.Key = key
	doc, err := json.Marshal(stored)
	if err != nil {
		return syncerr.NewValidationError(key, "encode show", err)
	}
	seasons, episodes := repository.CountNested([]*models.TVShow{stored})

	unlock := db.lockKey("show:" + key)
	defer unlock()

	err = db.withRetry(ctx, func() error {
		_, execErr := db.conn.ExecContext(ctx, `
			INSERT INTO shows (key, title, doc, season_count, episode_count, sync_version, last_synced, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE SET
				title = excluded.title,
				doc = excluded.doc,
				season_count = excluded.season_count,
				episode_count = excluded.episode_count,
				sync_version = excluded.sync_version,
				last_synced = excluded.last_synced,
				updated_at = CURRENT_TIMESTAMP`,
			key, stored.Title, string(doc), seasons, episodes, stored.SyncVersion, nullTime(stored.LastSynced))
		return execErr
	})
	if err != nil {
		return syncerr.NewPersistenceError("upsert_show", key, err)
	}
	return nil
}

// DeleteMovie implements repository.Repository.
func (db *DB) DeleteMovie(ctx context.Context, key string) error {
	return db.delete(ctx, "movies", "delete_movie", key)
}

// DeleteShow implements repository.Repository.
func (db *DB) DeleteShow(ctx context.Context, key string) error {
	return db.delete(ctx, "shows", "delete_show", key)
}

// delete removes one row. table is one of the two fixed catalog tables.
func (db *DB) delete(ctx context.Context, table, op, key string) (err error) {
	start := time.Now()
	defer func() { observe(op, start, err) }()

	var affected int64
	err = db.withRetry(ctx, func() error {
		res, execErr := db.conn.ExecContext(ctx, `DELETE FROM `+table+` WHERE key = ?`, key) //nolint:gosec // table is a constant
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return syncerr.NewPersistenceError(op, key, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %q: %w", table, key, repository.ErrNotFound)
	}
	return nil
}

func tableFor(mediaType models.MediaType) (string, error) {
	switch mediaType {
	case models.MediaTypeMovie:
		return "movies", nil
	case models.MediaTypeTVShow:
		return "shows", nil
	default:
		return "", fmt.Errorf("%w: %s", repository.ErrUnsupportedMediaType, mediaType)
	}
}

// Count implements repository.Repository.
func (db *DB) Count(ctx context.Context, mediaType models.MediaType) (int, error) {
	table, err := tableFor(mediaType)
	if err != nil {
		return 0, err
	}
	var n int
	err = db.withRetry(ctx, func() error {
		return db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n) //nolint:gosec // table is a constant
	})
	if err != nil {
		return 0, syncerr.NewPersistenceError("count", table, err)
	}
	return n, nil
}

// ListKeys implements repository.Repository.
func (db *DB) ListKeys(ctx context.Context, mediaType models.MediaType) ([]string, error) {
	table, err := tableFor(mediaType)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = db.withRetry(ctx, func() error {
		keys = keys[:0]
		rows, qerr := db.conn.QueryContext(ctx, `SELECT key FROM `+table+` ORDER BY key`) //nolint:gosec // table is a constant
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				return err
			}
			keys = append(keys, k)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, syncerr.NewPersistenceError("list_keys", table, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Stats implements repository.Repository.
func (db *DB) Stats(ctx context.Context) (*models.CatalogStats, error) {
	stats := &models.CatalogStats{}
	var movieSync, showSync sql.NullTime
	err := db.withRetry(ctx, func() error {
		return db.conn.QueryRowContext(ctx, `
			SELECT
				(SELECT COUNT(*) FROM movies),
				(SELECT COUNT(*) FROM shows),
				(SELECT COALESCE(SUM(season_count), 0) FROM shows),
				(SELECT COALESCE(SUM(episode_count), 0) FROM shows),
				(SELECT MAX(last_synced) FROM movies),
				(SELECT MAX(last_synced) FROM shows)`).
			Scan(&stats.Movies, &stats.Shows, &stats.Seasons, &stats.Episodes, &movieSync, &showSync)
	})
	if err != nil {
		return nil, syncerr.NewPersistenceError("stats", "", err)
	}

	var last time.Time
	for _, t := range []sql.NullTime{movieSync, showSync} {
		if t.Valid && t.Time.After(last) {
			last = t.Time
		}
	}
	if !last.IsZero() {
		stats.LastSyncTime = &last
	}
	return stats, nil
}

var _ repository.Repository = (*DB)(nil)
