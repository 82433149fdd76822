// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/repository"
	"github.com/tomtom215/catalogd/internal/syncerr"
)

// document is the working copy of one top-level entity during a batch.
type document struct {
	key    string
	movie  *models.Movie
	show   *models.TVShow
	stored bool // a document exists in the repository
	healed bool // legacy fields were repaired and are not yet persisted
}

// resolve loads key from repo, creating an empty entity when none is stored,
// and repairs documents written by older layouts.
func resolve(ctx context.Context, repo repository.Repository, mediaType models.MediaType, key string) (*document, error) {
	d := &document{key: key}
	switch mediaType {
	case models.MediaTypeMovie:
		m, err := repo.FindMovie(ctx, key)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			m = &models.Movie{Key: key, Title: key, SyncVersion: models.SyncVersion}
		case err != nil:
			return nil, syncerr.NewPersistenceError("find", key, err)
		default:
			d.stored = true
			d.healed = healMovie(m, key)
		}
		d.movie = m
	case models.MediaTypeTVShow:
		s, err := repo.FindShow(ctx, key)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s = &models.TVShow{Key: key, Title: key, SyncVersion: models.SyncVersion}
		case err != nil:
			return nil, syncerr.NewPersistenceError("find", key, err)
		default:
			d.stored = true
			d.healed = healShow(s, key)
		}
		d.show = s
	default:
		return nil, syncerr.NewValidationError(key, fmt.Sprintf("unsupported media type %q", mediaType), repository.ErrUnsupportedMediaType)
	}
	return d, nil
}

// healMovie repairs a stored movie and reports whether anything changed.
func healMovie(m *models.Movie, key string) bool {
	healed := false
	if m.Key != key {
		m.Key = key
		healed = true
	}
	if m.SyncVersion < models.SyncVersion {
		m.SyncVersion = models.SyncVersion
		healed = true
	}
	return healed
}

// healShow repairs a stored show and its nested parent references.
func healShow(s *models.TVShow, key string) bool {
	healed := false
	if s.Key != key {
		s.Key = key
		healed = true
	}
	if s.SyncVersion < models.SyncVersion {
		s.SyncVersion = models.SyncVersion
		healed = true
	}

	seasons := s.Seasons[:0]
	for _, season := range s.Seasons {
		if season == nil {
			healed = true
			continue
		}
		if season.ShowKey != key {
			season.ShowKey = key
			healed = true
		}
		if season.Title == "" {
			season.Title = models.SeasonName(season.SeasonNumber)
			healed = true
		}
		episodes := season.Episodes[:0]
		for _, ep := range season.Episodes {
			if ep == nil || ep.FileKey == "" {
				healed = true
				continue
			}
			if ep.ShowKey != key || ep.SeasonNumber != season.SeasonNumber {
				ep.ShowKey = key
				ep.SeasonNumber = season.SeasonNumber
				healed = true
			}
			episodes = append(episodes, ep)
		}
		season.Episodes = episodes
		seasons = append(seasons, season)
	}
	s.Seasons = seasons
	return healed
}

func (d *document) entity() models.Entity {
	if d.movie != nil {
		return d.movie
	}
	return d.show
}

func (d *document) mediaType() models.MediaType {
	if d.movie != nil {
		return models.MediaTypeMovie
	}
	return models.MediaTypeTVShow
}

// snapshot returns a deep copy of the current entity state.
func (d *document) snapshot() *document {
	c := *d
	if d.movie != nil {
		c.movie = d.movie.Clone()
	}
	if d.show != nil {
		c.show = d.show.Clone()
	}
	return &c
}

// restore reverts the entity to a copy taken with snapshot.
func (d *document) restore(from *document) {
	d.movie = from.movie
	d.show = from.show
	d.stored = from.stored
	d.healed = from.healed
}

func (d *document) touch(now time.Time) {
	if d.movie != nil {
		d.movie.LastSynced = now
		d.movie.SyncVersion = models.SyncVersion
		return
	}
	d.show.LastSynced = now
	d.show.SyncVersion = models.SyncVersion
}

// persist writes the whole document back.
func (d *document) persist(ctx context.Context, repo repository.Repository) error {
	var err error
	if d.movie != nil {
		err = repo.UpsertMovie(ctx, d.key, d.movie)
	} else {
		err = repo.UpsertShow(ctx, d.key, d.show)
	}
	if err != nil {
		return syncerr.NewPersistenceError("upsert", d.key, err)
	}
	d.stored = true
	d.healed = false
	return nil
}
