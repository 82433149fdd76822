// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package orphans

import (
	"context"
	"errors"
	"net/url"

	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/metrics"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/repository"
)

// Invalidator drops cache entries whose key matches a "*" glob.
type Invalidator interface {
	Invalidate(ctx context.Context, pattern string) (int, error)
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(ctx context.Context, pattern string) (int, error)

// Invalidate implements Invalidator.
func (f InvalidatorFunc) Invalidate(ctx context.Context, pattern string) (int, error) {
	return f(ctx, pattern)
}

// Result counts what Apply removed.
type Result struct {
	Movies      int     `json:"movies"`
	Shows       int     `json:"shows"`
	Seasons     int     `json:"seasons"`
	Episodes    int     `json:"episodes"`
	Invalidated int     `json:"invalidated"`
	Errors      []error `json:"-"`
}

// Err joins the per-entry errors, or returns nil.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// Applier removes reported orphans from a repository.
type Applier struct {
	repo   repository.Repository
	caches []Invalidator
}

// NewApplier creates an Applier. Every cache in caches is invalidated for
// each removed entity.
func NewApplier(repo repository.Repository, caches ...Invalidator) *Applier {
	return &Applier{repo: repo, caches: caches}
}

// Apply removes shows, then seasons not covered by a show removal, then
// episodes not covered by either, then movies. A failure on one entry does
// not stop the others; entries already gone count as removed.
func (a *Applier) Apply(ctx context.Context, report *Report) *Result {
	log := logging.Ctx(ctx).With().Str("component", "orphans").Logger()
	res := &Result{}
	var patterns []string

	removedShows := make(map[string]bool, len(report.ShowsToRemove))
	for _, key := range report.ShowsToRemove {
		if err := a.repo.DeleteShow(ctx, key); err != nil && !errors.Is(err, repository.ErrNotFound) {
			res.Errors = append(res.Errors, err)
			continue
		}
		removedShows[key] = true
		res.Shows++
		patterns = append(patterns, entityPatterns(key, "/*")...)
	}

	removedSeasons := make(map[SeasonRef]bool)
	byShow := make(map[string][]SeasonRef)
	var showOrder []string
	for _, ref := range report.SeasonsToRemove {
		if removedShows[ref.ShowKey] {
			continue
		}
		if _, ok := byShow[ref.ShowKey]; !ok {
			showOrder = append(showOrder, ref.ShowKey)
		}
		byShow[ref.ShowKey] = append(byShow[ref.ShowKey], ref)
	}
	for _, showKey := range showOrder {
		refs := byShow[showKey]
		n, err := a.editShow(ctx, showKey, func(show *models.TVShow) int {
			removed := 0
			for _, ref := range refs {
				if show.RemoveSeason(ref.SeasonNumber) {
					removed++
				}
			}
			return removed
		})
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Seasons += n
		for _, ref := range refs {
			removedSeasons[ref] = true
			patterns = append(patterns, entityPatterns(ref.Key(), "/*")...)
		}
	}

	episodesByShow := make(map[string][]EpisodeRef)
	showOrder = showOrder[:0]
	for _, ref := range report.EpisodesToRemove {
		if removedShows[ref.ShowKey] || removedSeasons[ref.season()] {
			continue
		}
		if _, ok := episodesByShow[ref.ShowKey]; !ok {
			showOrder = append(showOrder, ref.ShowKey)
		}
		episodesByShow[ref.ShowKey] = append(episodesByShow[ref.ShowKey], ref)
	}
	for _, showKey := range showOrder {
		refs := episodesByShow[showKey]
		n, err := a.editShow(ctx, showKey, func(show *models.TVShow) int {
			removed := 0
			for _, ref := range refs {
				if season := show.Season(ref.SeasonNumber); season != nil && season.RemoveEpisode(ref.FileKey) {
					removed++
				}
			}
			return removed
		})
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Episodes += n
		for _, ref := range refs {
			patterns = append(patterns, entityPatterns(ref.Key(), "*")...)
		}
	}

	for _, key := range report.MoviesToRemove {
		if err := a.repo.DeleteMovie(ctx, key); err != nil && !errors.Is(err, repository.ErrNotFound) {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Movies++
		patterns = append(patterns, entityPatterns(key, "/*")...)
	}

	for _, c := range a.caches {
		for _, p := range patterns {
			n, err := c.Invalidate(ctx, p)
			if err != nil {
				log.Warn().Err(err).Str("pattern", p).Msg("Cache invalidation failed")
				continue
			}
			res.Invalidated += n
		}
	}

	metrics.RecordOrphansRemoved("movie", res.Movies)
	metrics.RecordOrphansRemoved("show", res.Shows)
	metrics.RecordOrphansRemoved("season", res.Seasons)
	metrics.RecordOrphansRemoved("episode", res.Episodes)

	log.Info().
		Int("movies", res.Movies).
		Int("shows", res.Shows).
		Int("seasons", res.Seasons).
		Int("episodes", res.Episodes).
		Int("invalidated", res.Invalidated).
		Int("errors", len(res.Errors)).
		Msg("Orphan cleanup applied")
	return res
}

// editShow loads a show, applies edit, and writes it back when edit removed
// anything. A show that vanished meanwhile counts as nothing to do.
func (a *Applier) editShow(ctx context.Context, key string, edit func(*models.TVShow) int) (int, error) {
	show, err := a.repo.FindShow(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := edit(show)
	if n == 0 {
		return 0, nil
	}
	if err := a.repo.UpsertShow(ctx, key, show); err != nil {
		return 0, err
	}
	return n, nil
}

// entityPatterns returns cache key globs covering assets stored under an
// entity's path. Keys appear both raw and path-escaped in asset URLs.
// Episode assets share the file key as a name prefix, so they use "*".
func entityPatterns(key, tail string) []string {
	raw := "*/" + key + tail
	escaped := "*/" + escapePath(key) + tail
	if escaped == raw {
		return []string{raw}
	}
	return []string{raw, escaped}
}

func escapePath(key string) string {
	return (&url.URL{Path: key}).EscapedPath()
}
