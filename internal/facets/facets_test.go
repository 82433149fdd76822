// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package facets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/fieldpath"
	"github.com/tomtom215/catalogd/internal/lockedfields"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/priority"
	"github.com/tomtom215/catalogd/internal/snapshot"
)

func srv(id string, p int) models.ServerConfig {
	return models.ServerConfig{ID: id, Priority: p, BaseURL: "https://" + id + ".example", Enabled: true}
}

func movieSnap(server models.ServerConfig, src models.MovieSource) *models.Snapshot {
	return &models.Snapshot{Server: server, Movies: map[string]models.MovieSource{"Heat": src}}
}

// movieInput builds the input for movie Heat as the orchestrator would.
func movieInput(entity *models.Movie, running models.ServerConfig, snaps ...*models.Snapshot) *Input {
	in := &Input{Entity: entity, Server: running, Availability: priority.Build(snaps)}
	for _, s := range snaps {
		if src, ok := s.Movie("Heat"); ok {
			in.Sources = append(in.Sources, Source{Server: s.Server, Values: snapshot.MovieCandidates(s.Server, src)})
		}
	}
	return in
}

func aggregateAndApply(t *testing.T, a Aggregator, in *Input) []models.Change {
	t.Helper()
	u, err := a.Aggregate(context.Background(), in)
	if err != nil {
		t.Fatalf("%s.Aggregate() error = %v", a.Name(), err)
	}
	changes, err := Apply(in.Entity, u)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return changes
}

func TestVideoLowestPriorityWins(t *testing.T) {
	t.Parallel()

	a, b := srv("A", 2), srv("B", 1)
	movie := &models.Movie{Key: "Heat"}
	snaps := []*models.Snapshot{
		movieSnap(a, models.MovieSource{ContentSource: models.ContentSource{Video: "a/Heat.mkv"}}),
		movieSnap(b, models.MovieSource{ContentSource: models.ContentSource{Video: "b/Heat.mkv"}}),
	}

	for _, running := range []models.ServerConfig{a, b} {
		aggregateAndApply(t, NewVideo(), movieInput(movie, running, snaps...))
	}

	if movie.VideoURL != "https://B.example/b/Heat.mkv" {
		t.Errorf("VideoURL = %q, want B's file", movie.VideoURL)
	}
	if got := movie.SourceOf(fieldpath.Of(fieldpath.VideoURL)); got != "B" {
		t.Errorf("videoSource = %q, want B", got)
	}
	if got := movie.Flatten()["videoSource"]; got != "B" {
		t.Errorf("Flatten()[videoSource] = %q, want B", got)
	}
}

func TestVideoIdempotent(t *testing.T) {
	t.Parallel()

	a := srv("A", 1)
	movie := &models.Movie{Key: "Heat"}
	snap := movieSnap(a, models.MovieSource{ContentSource: models.ContentSource{
		Video:             "Heat.mkv",
		Length:            10200,
		Dimensions:        "3840x2160",
		MediaLastModified: "2024-05-01T10:00:00Z",
		MediaQuality:      &models.MediaQuality{Format: "HEVC", BitDepth: 10},
	}})

	first := aggregateAndApply(t, NewVideo(), movieInput(movie, a, snap))
	if len(first) != 5 {
		t.Errorf("first pass changes = %d, want 5", len(first))
	}
	second := aggregateAndApply(t, NewVideo(), movieInput(movie, a, snap))
	if len(second) != 0 {
		t.Errorf("replay changes = %v, want none", second)
	}
}

func TestVideoQualityAtomic(t *testing.T) {
	t.Parallel()

	a, b := srv("A", 2), srv("B", 1)
	movie := &models.Movie{Key: "Heat"}
	movie.MediaQuality = &models.MediaQuality{Format: "AVC", BitDepth: 8}

	snaps := []*models.Snapshot{
		// A alone supplies dolbyVision, so it holds priority for a sub-field.
		movieSnap(a, models.MovieSource{ContentSource: models.ContentSource{
			MediaQuality: &models.MediaQuality{Format: "HEVC", ViewingExperience: models.ViewingExperience{DolbyVision: true}},
		}}),
	}
	aggregateAndApply(t, NewVideo(), movieInput(movie, a, snaps...))
	if movie.MediaQuality.Format != "HEVC" || movie.MediaQuality.BitDepth != 0 || !movie.MediaQuality.ViewingExperience.DolbyVision {
		t.Errorf("MediaQuality = %+v, want A's descriptor whole", movie.MediaQuality)
	}

	snaps = append(snaps, movieSnap(b, models.MovieSource{ContentSource: models.ContentSource{
		MediaQuality: &models.MediaQuality{Format: "AV1", BitDepth: 10},
	}}))
	aggregateAndApply(t, NewVideo(), movieInput(movie, a, snaps...))
	if movie.MediaQuality.Format != "AV1" || movie.MediaQuality.ViewingExperience.DolbyVision {
		t.Errorf("MediaQuality = %+v, want B's descriptor with no merged flags", movie.MediaQuality)
	}
	if got := movie.SourceOf(fieldpath.Of(fieldpath.MediaQuality)); got != "B" {
		t.Errorf("mediaQualitySource = %q, want B", got)
	}
}

func TestLockedPosterInvariant(t *testing.T) {
	t.Parallel()

	a := srv("A", 0)
	movie := &models.Movie{Key: "Heat"}
	movie.PosterURL = "https://manual.example/poster.jpg"
	movie.LockedFields = lockedfields.Lock(nil, fieldpath.Of(fieldpath.PosterURL))

	for _, poster := range []string{"p1.jpg", "p2.jpg", ""} {
		snap := movieSnap(a, models.MovieSource{Poster: poster, Backdrop: "b.jpg"})
		aggregateAndApply(t, NewArtwork(nil, nil), movieInput(movie, a, snap))
		if movie.PosterURL != "https://manual.example/poster.jpg" {
			t.Fatalf("PosterURL = %q after snapshot poster %q", movie.PosterURL, poster)
		}
	}
	if movie.BackdropURL != "https://A.example/b.jpg" {
		t.Errorf("BackdropURL = %q, unlocked fields must still sync", movie.BackdropURL)
	}
}

func TestApplyRechecksLocks(t *testing.T) {
	t.Parallel()

	movie := &models.Movie{Key: "Heat"}
	u := newUpdate("artwork")
	u.set(fieldpath.Of(fieldpath.PosterURL), "late.jpg", "A")
	movie.LockedFields = models.LockedFields{"posterURL": true}

	changes, err := Apply(movie, u)
	if err != nil || len(changes) != 0 || movie.PosterURL != "" {
		t.Errorf("Apply() = %v, %v; PosterURL = %q", changes, err, movie.PosterURL)
	}
}

func TestArtworkPlaceholders(t *testing.T) {
	t.Parallel()

	a := srv("A", 1)
	source := newStaticPlaceholders(map[string]string{
		"https://A.example/poster.blurhash": "LEHV6nWB2yk8",
	})
	c := cache.New("placeholder-test", time.Minute)
	defer c.Close()
	pc := NewMemoryPlaceholderCache(c)
	artwork := NewArtwork(pc, source)

	movie := &models.Movie{Key: "Heat"}
	snap := movieSnap(a, models.MovieSource{
		Poster:           "poster.jpg",
		PosterBlurhash:   "poster.blurhash",
		BackdropBlurhash: "missing.blurhash",
	})

	aggregateAndApply(t, artwork, movieInput(movie, a, snap))
	if movie.PosterBlurhash != "LEHV6nWB2yk8" {
		t.Errorf("PosterBlurhash = %q", movie.PosterBlurhash)
	}
	if movie.BackdropBlurhash != "" {
		t.Errorf("BackdropBlurhash = %q, want empty for a missing file", movie.BackdropBlurhash)
	}
	if p, ok := pc.Get(context.Background(), "https://A.example/poster.blurhash"); !ok || p.Hash != "LEHV6nWB2yk8" {
		t.Errorf("cache entry = %+v, %v", p, ok)
	}

	changes := aggregateAndApply(t, artwork, movieInput(movie, a, snap))
	if len(changes) != 0 {
		t.Errorf("replay changes = %v", changes)
	}

	n, err := pc.Invalidate(context.Background(), "https://A.example/*")
	if err != nil || n != 1 {
		t.Errorf("Invalidate() = %d, %v; want 1", n, err)
	}
}

type failingPlaceholders struct{}

func (failingPlaceholders) FetchPlaceholder(context.Context, models.ServerConfig, string, *models.Placeholder) (*models.Placeholder, bool, error) {
	return nil, false, errors.New("connection refused")
}

func TestArtworkPlaceholderFallsBackToCache(t *testing.T) {
	t.Parallel()

	a := srv("A", 1)
	c := cache.New("placeholder-fallback", time.Minute)
	defer c.Close()
	pc := NewMemoryPlaceholderCache(c)
	_ = pc.Put(context.Background(), &models.Placeholder{URL: "https://A.example/p.blurhash", Hash: "cached"})

	movie := &models.Movie{Key: "Heat"}
	snap := movieSnap(a, models.MovieSource{PosterBlurhash: "p.blurhash"})
	aggregateAndApply(t, NewArtwork(pc, failingPlaceholders{}), movieInput(movie, a, snap))

	if movie.PosterBlurhash != "cached" {
		t.Errorf("PosterBlurhash = %q, want cached value", movie.PosterBlurhash)
	}
}

func subtitles(langs ...string) map[string]models.SubtitleSource {
	out := make(map[string]models.SubtitleSource, len(langs))
	for _, l := range langs {
		out[l] = models.SubtitleSource{SrcLang: l[:2], URL: l + ".vtt"}
	}
	return out
}

func TestCaptionPruning(t *testing.T) {
	t.Parallel()

	a := srv("A", 1)
	movie := &models.Movie{Key: "Heat"}

	before := movieSnap(a, models.MovieSource{ContentSource: models.ContentSource{Subtitles: subtitles("French", "English")}})
	aggregateAndApply(t, NewCaptions(), movieInput(movie, a, before))
	if got := models.CaptionLanguages(movie.Captions); len(got) != 2 || got[0] != "English" || got[1] != "French" {
		t.Fatalf("captions = %v, want [English French]", got)
	}

	after := movieSnap(a, models.MovieSource{ContentSource: models.ContentSource{Subtitles: subtitles("English")}})
	changes := aggregateAndApply(t, NewCaptions(), movieInput(movie, a, after))

	if got := models.CaptionLanguages(movie.Captions); len(got) != 1 || got[0] != "English" {
		t.Errorf("captions = %v, want [English]", got)
	}
	if len(changes) != 1 || changes[0].Path != "captionURLs.French" {
		t.Errorf("changes = %+v, want only the French removal", changes)
	}
	if src := movie.SourceOf(fieldpath.Caption("French")); src != "" {
		t.Errorf("French attribution = %q, want cleared", src)
	}
}

func TestCaptionPruningIsServerScoped(t *testing.T) {
	t.Parallel()

	a, b := srv("A", 1), srv("B", 2)
	movie := &models.Movie{Key: "Heat", Captions: []models.Caption{
		{Language: "English", URL: "a/en.vtt", SourceServerID: "A"},
		{Language: "German", URL: "b/de.vtt", SourceServerID: "B"},
	}}

	// A's pass: A no longer lists German, but German belongs to B.
	snap := movieSnap(a, models.MovieSource{ContentSource: models.ContentSource{Subtitles: subtitles("English")}})
	in := movieInput(movie, a, snap)
	u, err := NewCaptions().Aggregate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Removed) != 0 {
		t.Errorf("Removed = %v, want none", u.Removed)
	}

	// B's pass without German prunes it.
	in = movieInput(movie, b, snap, movieSnap(b, models.MovieSource{Title: "Heat"}))
	aggregateAndApply(t, NewCaptions(), in)
	if got := models.CaptionLanguages(movie.Captions); len(got) != 1 || got[0] != "English" {
		t.Errorf("captions = %v, want [English]", got)
	}
}

type countingFetcher struct {
	mu    sync.Mutex
	calls int
	doc   models.Metadata
}

func (f *countingFetcher) FetchMetadata(context.Context, models.ServerConfig, string) (models.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.doc, nil
}

func TestMetadataHashShortCircuit(t *testing.T) {
	t.Parallel()

	a := srv("A", 1)
	fetcher := &countingFetcher{doc: models.Metadata{"overview": "A heist.", "year": 1995.0}}
	snap := movieSnap(a, models.MovieSource{Title: "Heat", Metadata: "Heat/metadata.json", MetadataHash: "h1"})

	for _, shortCircuit := range []bool{true, false} {
		movie := &models.Movie{Key: "Heat"}
		agg := NewMetadata(fetcher, shortCircuit)

		first := aggregateAndApply(t, agg, movieInput(movie, a, snap))
		if len(first) != 3 {
			t.Errorf("shortCircuit=%v: first pass changes = %v, want title, metadata, hash", shortCircuit, first)
		}
		if movie.MetadataHash != "h1" || movie.Metadata["overview"] != "A heist." {
			t.Errorf("shortCircuit=%v: movie = %+v", shortCircuit, movie)
		}

		calls := fetcher.calls
		second := aggregateAndApply(t, agg, movieInput(movie, a, snap))
		if len(second) != 0 {
			t.Errorf("shortCircuit=%v: replay changes = %v, want none", shortCircuit, second)
		}
		fetched := fetcher.calls - calls
		if shortCircuit && fetched != 0 {
			t.Errorf("fetches with unchanged hash = %d, want 0", fetched)
		}
		if !shortCircuit && fetched != 1 {
			t.Errorf("fetches without short-circuit = %d, want 1", fetched)
		}
	}
}

func TestMetadataPreservesLockedKeys(t *testing.T) {
	t.Parallel()

	a := srv("A", 1)
	movie := &models.Movie{
		Key:          "Heat",
		Metadata:     models.Metadata{"overview": "Curated.", "year": 1995.0},
		LockedFields: models.LockedFields{"metadata": map[string]any{"overview": true}},
	}
	fetcher := &countingFetcher{doc: models.Metadata{"overview": "Scraped.", "year": 1995.0, "runtime": 170.0}}
	snap := movieSnap(a, models.MovieSource{Metadata: "Heat/metadata.json", MetadataHash: "h2"})

	aggregateAndApply(t, NewMetadata(fetcher, true), movieInput(movie, a, snap))

	if movie.Metadata["overview"] != "Curated." {
		t.Errorf("overview = %v, want locked value kept", movie.Metadata["overview"])
	}
	if movie.Metadata["runtime"] != 170.0 {
		t.Errorf("runtime = %v, want fetched value", movie.Metadata["runtime"])
	}
}

func TestChapters(t *testing.T) {
	t.Parallel()

	a, b := srv("A", 1), srv("B", 1)
	movie := &models.Movie{Key: "Heat"}
	snaps := []*models.Snapshot{
		movieSnap(a, models.MovieSource{ContentSource: models.ContentSource{Chapters: "a.vtt"}}),
		movieSnap(b, models.MovieSource{ContentSource: models.ContentSource{Chapters: "b.vtt"}}),
	}
	aggregateAndApply(t, NewChapters(), movieInput(movie, b, snaps...))
	if movie.ChapterURL != "https://A.example/a.vtt" {
		t.Errorf("ChapterURL = %q, want first-seen on tie", movie.ChapterURL)
	}
}
