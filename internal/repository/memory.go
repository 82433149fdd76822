// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/catalogd/internal/metrics"
	"github.com/tomtom215/catalogd/internal/models"
)

// Memory is a Repository held in process memory.
type Memory struct {
	mu       sync.RWMutex
	movies   map[string]*models.Movie
	shows    map[string]*models.TVShow
	writes   int
	lastSync time.Time
	closed   bool
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		movies: make(map[string]*models.Movie),
		shows:  make(map[string]*models.TVShow),
	}
}

// Writes returns the number of successful upserts and deletes.
func (r *Memory) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

func observe(op string, start time.Time, err error) {
	metrics.RecordRepositoryOperation("memory", op, time.Since(start), err)
}

// FindMovie implements Repository.
func (r *Memory) FindMovie(_ context.Context, key string) (*models.Movie, error) {
	start := time.Now()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	m, ok := r.movies[key]
	observe("find_movie", start, nil)
	if !ok {
		return nil, fmt.Errorf("movie %q: %w", key, ErrNotFound)
	}
	return m.Clone(), nil
}

// FindShow implements Repository.
func (r *Memory) FindShow(_ context.Context, key string) (*models.TVShow, error) {
	start := time.Now()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	s, ok := r.shows[key]
	observe("find_show", start, nil)
	if !ok {
		return nil, fmt.Errorf("show %q: %w", key, ErrNotFound)
	}
	return s.Clone(), nil
}

// UpsertMovie implements Repository.
func (r *Memory) UpsertMovie(_ context.Context, key string, movie *models.Movie) error {
	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	stored := movie.Clone()
	stored.Key = key
	r.movies[key] = stored
	r.touch(stored.LastSynced)
	observe("upsert_movie", start, nil)
	return nil
}

// UpsertShow implements Repository.
func (r *Memory) UpsertShow(_ context.Context, key string, show *models.TVShow) error {
	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	stored := show.Clone()
	stored.Key = key
	r.shows[key] = stored
	r.touch(stored.LastSynced)
	observe("upsert_show", start, nil)
	return nil
}

func (r *Memory) touch(t time.Time) {
	r.writes++
	if t.After(r.lastSync) {
		r.lastSync = t
	}
}

// DeleteMovie implements Repository.
func (r *Memory) DeleteMovie(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.movies[key]; !ok {
		return fmt.Errorf("movie %q: %w", key, ErrNotFound)
	}
	delete(r.movies, key)
	r.writes++
	return nil
}

// DeleteShow implements Repository.
func (r *Memory) DeleteShow(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.shows[key]; !ok {
		return fmt.Errorf("show %q: %w", key, ErrNotFound)
	}
	delete(r.shows, key)
	r.writes++
	return nil
}

// Count implements Repository.
func (r *Memory) Count(ctx context.Context, mediaType models.MediaType) (int, error) {
	keys, err := r.ListKeys(ctx, mediaType)
	return len(keys), err
}

// ListKeys implements Repository.
func (r *Memory) ListKeys(_ context.Context, mediaType models.MediaType) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	var keys []string
	switch mediaType {
	case models.MediaTypeMovie:
		keys = make([]string, 0, len(r.movies))
		for k := range r.movies {
			keys = append(keys, k)
		}
	case models.MediaTypeTVShow:
		keys = make([]string, 0, len(r.shows))
		for k := range r.shows {
			keys = append(keys, k)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}
	sort.Strings(keys)
	return keys, nil
}

// Stats implements Repository.
func (r *Memory) Stats(_ context.Context) (*models.CatalogStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	shows := make([]*models.TVShow, 0, len(r.shows))
	for _, s := range r.shows {
		shows = append(shows, s)
	}
	seasons, episodes := CountNested(shows)
	stats := &models.CatalogStats{
		Movies:   len(r.movies),
		Shows:    len(r.shows),
		Seasons:  seasons,
		Episodes: episodes,
	}
	if !r.lastSync.IsZero() {
		t := r.lastSync
		stats.LastSyncTime = &t
	}
	return stats, nil
}

// Ping implements Repository.
func (r *Memory) Ping(_ context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Repository.
func (r *Memory) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

var _ Repository = (*Memory)(nil)
