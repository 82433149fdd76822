// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogd/internal/fieldpath"
)

// testJSONRoundTrip marshals the input, unmarshals it back, and calls verify.
func testJSONRoundTrip[T any](t *testing.T, name string, input T, verify func(t *testing.T, decoded T)) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		data, err := json.Marshal(input)
		if err != nil {
			t.Fatalf("Failed to marshal %s: %v", name, err)
		}

		var decoded T
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Failed to unmarshal %s: %v", name, err)
		}

		if verify != nil {
			verify(t, decoded)
		}
	})
}

func createTestMovie() *Movie {
	m := &Movie{
		Key:   "Heat (1995)",
		Title: "Heat",
		Metadata: Metadata{
			"title":   "Heat",
			"runtime": 170.0,
		},
		MetadataHash: "abc123",
		Artwork: Artwork{
			PosterURL: "https://a.example/movies/Heat/poster.jpg",
		},
		VideoInfo: VideoInfo{
			VideoURL: "https://a.example/movies/Heat/Heat.mkv",
			Duration: 10200000,
			MediaQuality: &MediaQuality{
				Format:            "HEVC",
				BitDepth:          10,
				IsHDR:             true,
				ViewingExperience: ViewingExperience{DolbyVision: true},
			},
		},
		Captions: []Caption{
			{Language: "French", SrcLang: "fr", URL: "https://a.example/fr.vtt", SourceServerID: "a"},
		},
		LockedFields: LockedFields{"posterURL": true},
		LastSynced:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SyncVersion:  SyncVersion,
	}
	m.SetSource(fieldpath.Of(fieldpath.VideoURL), "a")
	m.SetSource(fieldpath.Caption("French"), "a")
	return m
}

func TestJSONMarshaling(t *testing.T) {
	t.Parallel()

	testJSONRoundTrip(t, "Movie", createTestMovie(), func(t *testing.T, decoded *Movie) {
		if decoded.Key != "Heat (1995)" {
			t.Errorf("Expected key 'Heat (1995)', got %q", decoded.Key)
		}
		if decoded.SourceOf(fieldpath.Of(fieldpath.VideoURL)) != "a" {
			t.Errorf("videoURL attribution lost: %v", decoded.Sources)
		}
		if decoded.SourceOf(fieldpath.Caption("French")) != "a" {
			t.Errorf("caption attribution lost: %v", decoded.Sources)
		}
		if decoded.MediaQuality == nil || !decoded.MediaQuality.ViewingExperience.DolbyVision {
			t.Error("MediaQuality not properly marshaled/unmarshaled")
		}
		if decoded.LockedFields["posterURL"] != true {
			t.Error("LockedFields not properly marshaled/unmarshaled")
		}
	})

	show := &TVShow{Key: "Severance", Title: "Severance"}
	season, _ := show.EnsureSeason(1)
	season.EnsureEpisode("S01E01.mkv")
	testJSONRoundTrip(t, "TVShow", show, func(t *testing.T, decoded *TVShow) {
		if len(decoded.Seasons) != 1 || len(decoded.Seasons[0].Episodes) != 1 {
			t.Fatalf("nested collections lost: %+v", decoded)
		}
		if got := decoded.Seasons[0].Episodes[0].EpisodeNumber; got != 1 {
			t.Errorf("Expected episode number 1, got %d", got)
		}
	})
}

func TestAttributionFlatten(t *testing.T) {
	t.Parallel()

	m := createTestMovie()
	flat := m.Flatten()
	if flat["videoSource"] != "a" {
		t.Errorf("Expected videoSource 'a', got %q", flat["videoSource"])
	}
	if flat["captionURLs.FrenchSource"] != "a" {
		t.Errorf("Expected caption source, got %v", flat)
	}
}

func TestMovieGetSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		path  fieldpath.Path
		value any
		want  any
	}{
		{"title", fieldpath.Of(fieldpath.Title), "Heat", "Heat"},
		{"video url", fieldpath.Of(fieldpath.VideoURL), "https://b/v.mkv", "https://b/v.mkv"},
		{"duration from float", fieldpath.Of(fieldpath.Duration), 12.6, int64(13)},
		{"size from int", fieldpath.Of(fieldpath.Size), 2048, int64(2048)},
		{"poster", fieldpath.Of(fieldpath.PosterURL), "https://b/p.jpg", "https://b/p.jpg"},
		{"backdrop", fieldpath.Of(fieldpath.BackdropURL), "https://b/bd.jpg", "https://b/bd.jpg"},
		{"chapters", fieldpath.Of(fieldpath.ChapterURL), "https://b/ch.vtt", "https://b/ch.vtt"},
		{
			"last modified from time",
			fieldpath.Of(fieldpath.MediaLastModified),
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			"2026-03-01T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Movie{Key: "k"}
			if err := m.Set(tt.path, tt.value); err != nil {
				t.Fatalf("Set(%s) error: %v", tt.path, err)
			}
			got, ok := m.Get(tt.path)
			if !ok {
				t.Fatalf("Get(%s) reported absent", tt.path)
			}
			if got != tt.want {
				t.Errorf("Get(%s) = %#v, want %#v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSetClearsWithNil(t *testing.T) {
	t.Parallel()

	m := createTestMovie()
	if err := m.Set(fieldpath.Of(fieldpath.VideoURL), nil); err != nil {
		t.Fatalf("Set nil error: %v", err)
	}
	if _, ok := m.Get(fieldpath.Of(fieldpath.VideoURL)); ok {
		t.Error("videoURL should be absent after nil Set")
	}
}

func TestSetRejectsForeignFields(t *testing.T) {
	t.Parallel()

	show := &TVShow{Key: "Severance"}
	err := show.Set(fieldpath.Of(fieldpath.VideoURL), "x")
	if !errors.Is(err, ErrFieldNotSupported) {
		t.Errorf("Expected ErrFieldNotSupported, got %v", err)
	}

	m := &Movie{Key: "k"}
	err = m.Set(fieldpath.Of(fieldpath.Duration), []string{"x"})
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue, got %v", err)
	}
}

func TestQualitySubFieldGet(t *testing.T) {
	t.Parallel()

	m := createTestMovie()
	got, ok := m.Get(fieldpath.Of(fieldpath.QualityDolbyVision))
	if !ok || got != true {
		t.Errorf("dolbyVision = %v, %v", got, ok)
	}
	if _, ok := m.Get(fieldpath.Of(fieldpath.QualityHDR10Plus)); ok {
		t.Error("hdr10Plus should be absent")
	}

	q, _ := m.Get(fieldpath.Of(fieldpath.MediaQuality))
	q.(*MediaQuality).Format = "AV1"
	if m.MediaQuality.Format != "HEVC" {
		t.Error("Get must return a copy of mediaQuality")
	}
}

func TestCaptionSetOrdering(t *testing.T) {
	t.Parallel()

	m := &Movie{Key: "k"}
	for _, lang := range []string{"French", "German", "English (SDH)", "Spanish"} {
		if err := m.Set(fieldpath.Caption(lang), Caption{URL: lang + ".vtt"}); err != nil {
			t.Fatalf("Set caption %s: %v", lang, err)
		}
	}

	want := []string{"English (SDH)", "French", "German", "Spanish"}
	got := CaptionLanguages(m.Captions)
	if len(got) != len(want) {
		t.Fatalf("languages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("languages[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if err := m.Set(fieldpath.Caption("German"), nil); err != nil {
		t.Fatalf("remove caption: %v", err)
	}
	if _, ok := m.Get(fieldpath.Caption("German")); ok {
		t.Error("German caption should be removed")
	}
	if len(m.Captions) != 3 {
		t.Errorf("Expected 3 captions, got %d", len(m.Captions))
	}
}

func TestEntityKeys(t *testing.T) {
	t.Parallel()

	show := &TVShow{Key: "Severance"}
	season, created := show.EnsureSeason(2)
	if !created {
		t.Fatal("EnsureSeason should create a new season")
	}
	if _, created := show.EnsureSeason(2); created {
		t.Error("EnsureSeason should return the existing season")
	}
	ep, _ := season.EnsureEpisode("S02E05 - Trojan's Horse.mkv")

	if got := season.EntityKey(); got != "Severance/Season 2" {
		t.Errorf("season key = %q", got)
	}
	if got := ep.EntityKey(); got != "Severance/Season 2/S02E05 - Trojan's Horse.mkv" {
		t.Errorf("episode key = %q", got)
	}
	if ep.EpisodeNumber != 5 {
		t.Errorf("episode number = %d, want 5", ep.EpisodeNumber)
	}

	if !season.RemoveEpisode("S02E05 - Trojan's Horse.mkv") || len(season.Episodes) != 0 {
		t.Error("RemoveEpisode failed")
	}
	if !show.RemoveSeason(2) || show.Season(2) != nil {
		t.Error("RemoveSeason failed")
	}
}

func TestParseSeasonName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"Season 1", 1, false},
		{"season 01", 1, false},
		{"Season10", 10, false},
		{"Specials", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSeasonName(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSeasonName(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeasonName(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestServerConfigURLs(t *testing.T) {
	t.Parallel()

	s := ServerConfig{ID: "a", BaseURL: "https://media.example/", Prefix: "/library"}

	tests := []struct {
		rel  string
		want string
	}{
		{"movies/Heat/Heat.mkv", "https://media.example/library/movies/Heat/Heat.mkv"},
		{"/movies/Heat/poster.jpg", "https://media.example/library/movies/Heat/poster.jpg"},
		{"https://cdn.example/x.jpg", "https://cdn.example/x.jpg"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := s.ResolveURL(tt.rel); got != tt.want {
			t.Errorf("ResolveURL(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}

	if got := s.SnapshotURL(); got != "https://media.example/api/media-list" {
		t.Errorf("SnapshotURL() = %q", got)
	}
	s.APIURL = "https://api.example"
	s.SnapshotPath = "catalog.json"
	if got := s.SnapshotURL(); got != "https://api.example/catalog.json" {
		t.Errorf("SnapshotURL() with api url = %q", got)
	}
}

func TestSnapshotLookups(t *testing.T) {
	t.Parallel()

	raw := `{
		"movies": {"Heat (1995)": {"video": "movies/Heat.mkv", "subtitles": {"French": {"srcLang": "fr", "url": "fr.vtt"}, "English": {"srcLang": "en", "url": "en.vtt"}}}},
		"tv": {"Severance": {"seasons": {"Season 01": {"episodes": {"S01E01.mkv": {"video": "tv/S01E01.mkv"}}}}}},
		"config": {"priority": 2, "baseUrl": "https://a.example"}
	}`
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}

	movie, ok := snap.Movie("Heat (1995)")
	if !ok || movie.Video != "movies/Heat.mkv" {
		t.Fatalf("movie lookup = %+v, %v", movie, ok)
	}
	langs := movie.SubtitleLanguages()
	if len(langs) != 2 || langs[0] != "English" {
		t.Errorf("SubtitleLanguages() = %v, want English first", langs)
	}

	ep, ok := snap.Episode("Severance", 1, "S01E01.mkv")
	if !ok || ep.Video != "tv/S01E01.mkv" {
		t.Errorf("episode lookup through padded season name = %+v, %v", ep, ok)
	}
	if _, ok := snap.Episode("Severance", 2, "S01E01.mkv"); ok {
		t.Error("missing season should not resolve")
	}
	if snap.Config.Priority != 2 {
		t.Errorf("config priority = %d", snap.Config.Priority)
	}
}

func TestEntityStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		statuses []SyncStatus
		want     SyncStatus
	}{
		{"all skipped", []SyncStatus{StatusSkipped, StatusSkipped}, StatusSkipped},
		{"one completed", []SyncStatus{StatusSkipped, StatusCompleted}, StatusCompleted},
		{"failure wins", []SyncStatus{StatusCompleted, StatusFailed, StatusSkipped}, StatusFailed},
		{"empty", nil, StatusSkipped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]SyncResult, len(tt.statuses))
			for i, s := range tt.statuses {
				results[i].Status = s
			}
			if got := EntityStatus(results); got != tt.want {
				t.Errorf("EntityStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}
