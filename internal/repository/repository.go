// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package repository defines the canonical catalog store contract and an
// in-memory implementation.
//
// Movies and shows are whole documents: a show carries its seasons and
// episodes, and an upsert replaces the stored document for its key with the
// value given. Implementations return copies; callers may mutate what they
// get back without affecting the store.
package repository

import (
	"context"
	"errors"

	"github.com/tomtom215/catalogd/internal/models"
)

// ErrNotFound is returned when no document exists for a key.
var ErrNotFound = errors.New("catalog entry not found")

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("repository closed")

// Repository is the canonical store.
type Repository interface {
	FindMovie(ctx context.Context, key string) (*models.Movie, error)
	FindShow(ctx context.Context, key string) (*models.TVShow, error)

	UpsertMovie(ctx context.Context, key string, movie *models.Movie) error
	UpsertShow(ctx context.Context, key string, show *models.TVShow) error

	DeleteMovie(ctx context.Context, key string) error
	DeleteShow(ctx context.Context, key string) error

	// Count and ListKeys accept MediaTypeMovie and MediaTypeTVShow.
	Count(ctx context.Context, mediaType models.MediaType) (int, error)
	ListKeys(ctx context.Context, mediaType models.MediaType) ([]string, error)

	Stats(ctx context.Context) (*models.CatalogStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// ErrUnsupportedMediaType is returned by Count and ListKeys for seasons and
// episodes, which are stored inside their show.
var ErrUnsupportedMediaType = errors.New("media type is not stored at top level")

// LoadCatalog reads every movie and show. It is used by orphan detection.
func LoadCatalog(ctx context.Context, repo Repository) ([]*models.Movie, []*models.TVShow, error) {
	movieKeys, err := repo.ListKeys(ctx, models.MediaTypeMovie)
	if err != nil {
		return nil, nil, err
	}
	movies := make([]*models.Movie, 0, len(movieKeys))
	for _, key := range movieKeys {
		m, err := repo.FindMovie(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		movies = append(movies, m)
	}

	showKeys, err := repo.ListKeys(ctx, models.MediaTypeTVShow)
	if err != nil {
		return nil, nil, err
	}
	shows := make([]*models.TVShow, 0, len(showKeys))
	for _, key := range showKeys {
		s, err := repo.FindShow(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		shows = append(shows, s)
	}
	return movies, shows, nil
}

// CountNested returns season and episode totals across shows.
func CountNested(shows []*models.TVShow) (seasons, episodes int) {
	for _, s := range shows {
		seasons += len(s.Seasons)
		for _, season := range s.Seasons {
			episodes += len(season.Episodes)
		}
	}
	return seasons, episodes
}
