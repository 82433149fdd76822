// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package repotest holds the behaviour every repository backend must share.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/catalogd/internal/fieldpath"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/repository"
)

// Factory opens a fresh, empty repository for one subtest.
type Factory func(t *testing.T) repository.Repository

// SampleShow returns a show with two seasons and three episodes.
func SampleShow(key string) *models.TVShow {
	show := &models.TVShow{Key: key, Title: key, SyncVersion: models.SyncVersion}
	s1, _ := show.EnsureSeason(1)
	s1.EnsureEpisode("S01E01.mkv")
	ep, _ := s1.EnsureEpisode("S01E02.mkv")
	ep.VideoURL = "https://a.example/" + key + "/S01E02.mkv"
	ep.Captions = []models.Caption{{Language: "English", SrcLang: "en", URL: "en.vtt", SourceServerID: "a"}}
	s2, _ := show.EnsureSeason(2)
	s2.EnsureEpisode("S02E01.mkv")
	return show
}

// SampleMovie returns a movie with every kind of field populated.
func SampleMovie(key string) *models.Movie {
	m := &models.Movie{
		Key:          key,
		Title:        key,
		Metadata:     models.Metadata{"overview": "A heist.", "genres": []any{"Crime"}},
		MetadataHash: "h1",
		Captions:     []models.Caption{{Language: "English", SrcLang: "en", URL: "en.vtt", SourceServerID: "a"}},
		LockedFields: models.LockedFields{"posterURL": true},
		LastSynced:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SyncVersion:  models.SyncVersion,
	}
	m.VideoURL = "https://a.example/" + key + ".mkv"
	m.Duration = 10200
	m.MediaQuality = &models.MediaQuality{Format: "HEVC", BitDepth: 10, ViewingExperience: models.ViewingExperience{DolbyVision: true}}
	m.PosterURL = "https://a.example/poster.jpg"
	m.SetSource(fieldpath.Of(fieldpath.VideoURL), "a")
	m.SetSource(fieldpath.Caption("English"), "a")
	return m
}

// Run exercises the repository contract against backends produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("movie round trip", func(t *testing.T) {
		repo := newRepo(t)
		want := SampleMovie("Heat (1995)")
		if err := repo.UpsertMovie(ctx, want.Key, want); err != nil {
			t.Fatalf("UpsertMovie() error = %v", err)
		}
		got, err := repo.FindMovie(ctx, want.Key)
		if err != nil {
			t.Fatalf("FindMovie() error = %v", err)
		}
		if got.Title != want.Title || got.VideoURL != want.VideoURL || got.Duration != want.Duration {
			t.Errorf("FindMovie() = %+v", got)
		}
		if got.MediaQuality == nil || !got.MediaQuality.ViewingExperience.DolbyVision {
			t.Errorf("MediaQuality = %+v", got.MediaQuality)
		}
		if got.SourceOf(fieldpath.Of(fieldpath.VideoURL)) != "a" || got.SourceOf(fieldpath.Caption("English")) != "a" {
			t.Errorf("Sources = %v", got.Sources)
		}
		if got.LockedFields["posterURL"] != true {
			t.Errorf("LockedFields = %v", got.LockedFields)
		}
		if got.Metadata["overview"] != "A heist." || got.MetadataHash != "h1" {
			t.Errorf("Metadata = %v, hash %q", got.Metadata, got.MetadataHash)
		}
		if len(got.Captions) != 1 || got.Captions[0].Language != "English" {
			t.Errorf("Captions = %v", got.Captions)
		}
		if !got.LastSynced.Equal(want.LastSynced) {
			t.Errorf("LastSynced = %v, want %v", got.LastSynced, want.LastSynced)
		}
	})

	t.Run("returned values are copies", func(t *testing.T) {
		repo := newRepo(t)
		m := SampleMovie("Heat")
		if err := repo.UpsertMovie(ctx, m.Key, m); err != nil {
			t.Fatal(err)
		}
		m.Title = "mutated after upsert"
		got, err := repo.FindMovie(ctx, "Heat")
		if err != nil {
			t.Fatal(err)
		}
		got.Title = "mutated after find"
		again, err := repo.FindMovie(ctx, "Heat")
		if err != nil {
			t.Fatal(err)
		}
		if again.Title != "Heat" {
			t.Errorf("Title = %q, want stored value unaffected", again.Title)
		}
	})

	t.Run("upsert replaces", func(t *testing.T) {
		repo := newRepo(t)
		m := SampleMovie("Heat")
		if err := repo.UpsertMovie(ctx, "Heat", m); err != nil {
			t.Fatal(err)
		}
		replacement := &models.Movie{Key: "Heat", Title: "Heat (Director's Cut)"}
		if err := repo.UpsertMovie(ctx, "Heat", replacement); err != nil {
			t.Fatal(err)
		}
		got, err := repo.FindMovie(ctx, "Heat")
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != "Heat (Director's Cut)" || got.VideoURL != "" {
			t.Errorf("FindMovie() = %+v, want whole-document replacement", got)
		}
		if n, _ := repo.Count(ctx, models.MediaTypeMovie); n != 1 {
			t.Errorf("Count() = %d, want 1", n)
		}
	})

	t.Run("show with nested seasons", func(t *testing.T) {
		repo := newRepo(t)
		show := SampleShow("Severance")
		if err := repo.UpsertShow(ctx, show.Key, show); err != nil {
			t.Fatal(err)
		}
		got, err := repo.FindShow(ctx, "Severance")
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Seasons) != 2 {
			t.Fatalf("len(Seasons) = %d, want 2", len(got.Seasons))
		}
		ep := got.Season(1).Episode("S01E02.mkv")
		if ep == nil || ep.EpisodeNumber != 2 || ep.VideoURL == "" || len(ep.Captions) != 1 {
			t.Errorf("episode = %+v", ep)
		}

		stats, err := repo.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Shows != 1 || stats.Seasons != 2 || stats.Episodes != 3 || stats.Movies != 0 {
			t.Errorf("Stats() = %+v", stats)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.FindMovie(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("FindMovie() error = %v, want ErrNotFound", err)
		}
		if _, err := repo.FindShow(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("FindShow() error = %v, want ErrNotFound", err)
		}
		if err := repo.DeleteMovie(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("DeleteMovie() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete and list", func(t *testing.T) {
		repo := newRepo(t)
		for _, key := range []string{"b", "a", "c"} {
			if err := repo.UpsertMovie(ctx, key, &models.Movie{Key: key}); err != nil {
				t.Fatal(err)
			}
		}
		if err := repo.UpsertShow(ctx, "s", SampleShow("s")); err != nil {
			t.Fatal(err)
		}
		if err := repo.DeleteMovie(ctx, "b"); err != nil {
			t.Fatal(err)
		}
		if err := repo.DeleteShow(ctx, "s"); err != nil {
			t.Fatal(err)
		}
		keys, err := repo.ListKeys(ctx, models.MediaTypeMovie)
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
			t.Errorf("ListKeys() = %v, want [a c]", keys)
		}
		if n, _ := repo.Count(ctx, models.MediaTypeTVShow); n != 0 {
			t.Errorf("Count(tv) = %d, want 0", n)
		}
		if _, err := repo.ListKeys(ctx, models.MediaTypeEpisode); !errors.Is(err, repository.ErrUnsupportedMediaType) {
			t.Errorf("ListKeys(episode) error = %v", err)
		}
	})

	t.Run("load catalog", func(t *testing.T) {
		repo := newRepo(t)
		_ = repo.UpsertMovie(ctx, "Heat", SampleMovie("Heat"))
		_ = repo.UpsertShow(ctx, "Severance", SampleShow("Severance"))
		movies, shows, err := repository.LoadCatalog(ctx, repo)
		if err != nil {
			t.Fatal(err)
		}
		if len(movies) != 1 || len(shows) != 1 {
			t.Errorf("LoadCatalog() = %d movies, %d shows", len(movies), len(shows))
		}
	})

	t.Run("ping", func(t *testing.T) {
		repo := newRepo(t)
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}
