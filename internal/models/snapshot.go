// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import (
	"sort"
	"time"
)

// Snapshot is the media list a source server publishes. Asset references are
// paths relative to the server's base URL and prefix unless already absolute.
//
//	{
//	  "movies": {"Heat (1995)": {"video": "movies/Heat (1995)/Heat.mkv", ...}},
//	  "tv": {"Severance": {"seasons": {"Season 1": {"episodes": {"S01E01.mkv": {...}}}}}},
//	  "config": {"priority": 1, "baseUrl": "https://media-a.example"}
//	}
type Snapshot struct {
	Movies map[string]MovieSource `json:"movies"`
	TV     map[string]ShowSource  `json:"tv"`
	Config SnapshotConfig         `json:"config"`

	// Server is the configured server the snapshot was loaded from. It is not
	// part of the wire format; the snapshot's own config block is informational.
	Server    ServerConfig `json:"-"`
	FetchedAt time.Time    `json:"-"`
}

// SnapshotConfig is the server's self-description inside a snapshot.
type SnapshotConfig struct {
	ID       string `json:"id,omitempty"`
	Priority int    `json:"priority"`
	BaseURL  string `json:"baseUrl,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

// SubtitleSource is one caption track in a snapshot.
type SubtitleSource struct {
	SrcLang      string `json:"srcLang"`
	URL          string `json:"url"`
	LastModified string `json:"lastModified,omitempty"`
}

// ContentSource holds the playable-file fields shared by movies and episodes.
type ContentSource struct {
	Video             string                    `json:"video,omitempty"`
	Length            int64                     `json:"length,omitempty"`
	Dimensions        string                    `json:"dimensions,omitempty"`
	HDR               string                    `json:"hdr,omitempty"`
	Size              int64                     `json:"size,omitempty"`
	MediaLastModified string                    `json:"mediaLastModified,omitempty"`
	MediaQuality      *MediaQuality             `json:"mediaQuality,omitempty"`
	Subtitles         map[string]SubtitleSource `json:"subtitles,omitempty"`
	Chapters          string                    `json:"chapters,omitempty"`
}

// SubtitleLanguages returns the snapshot's caption languages English-first,
// then alphabetically.
func (c ContentSource) SubtitleLanguages() []string {
	langs := make([]string, 0, len(c.Subtitles))
	for lang := range c.Subtitles {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		ei, ej := IsEnglish(langs[i]), IsEnglish(langs[j])
		if ei != ej {
			return ei
		}
		return langs[i] < langs[j]
	})
	return langs
}

// MovieSource is a movie entry in a snapshot.
type MovieSource struct {
	Title            string `json:"title,omitempty"`
	Metadata         string `json:"metadata,omitempty"`
	MetadataHash     string `json:"metadataHash,omitempty"`
	Poster           string `json:"poster,omitempty"`
	PosterBlurhash   string `json:"posterBlurhash,omitempty"`
	Backdrop         string `json:"backdrop,omitempty"`
	BackdropBlurhash string `json:"backdropBlurhash,omitempty"`
	Logo             string `json:"logo,omitempty"`
	ContentSource
}

// ShowSource is a TV show entry in a snapshot.
type ShowSource struct {
	Title            string                  `json:"title,omitempty"`
	Metadata         string                  `json:"metadata,omitempty"`
	MetadataHash     string                  `json:"metadataHash,omitempty"`
	Poster           string                  `json:"poster,omitempty"`
	PosterBlurhash   string                  `json:"posterBlurhash,omitempty"`
	Backdrop         string                  `json:"backdrop,omitempty"`
	BackdropBlurhash string                  `json:"backdropBlurhash,omitempty"`
	Logo             string                  `json:"logo,omitempty"`
	Seasons          map[string]SeasonSource `json:"seasons,omitempty"`
}

// SeasonSource is a season entry in a snapshot, keyed by its "Season N" name.
type SeasonSource struct {
	Poster         string                   `json:"poster,omitempty"`
	PosterBlurhash string                   `json:"posterBlurhash,omitempty"`
	Episodes       map[string]EpisodeSource `json:"episodes,omitempty"`
}

// EpisodeSource is an episode entry in a snapshot, keyed by its file key.
type EpisodeSource struct {
	Title             string `json:"title,omitempty"`
	EpisodeNumber     int    `json:"episodeNumber,omitempty"`
	Metadata          string `json:"metadata,omitempty"`
	MetadataHash      string `json:"metadataHash,omitempty"`
	Thumbnail         string `json:"thumbnail,omitempty"`
	ThumbnailBlurhash string `json:"thumbnailBlurhash,omitempty"`
	ContentSource
}

// Season looks up a season by number regardless of how its name is padded.
func (s ShowSource) Season(number int) (SeasonSource, bool) {
	if season, ok := s.Seasons[SeasonName(number)]; ok {
		return season, true
	}
	for name, season := range s.Seasons {
		if n, err := ParseSeasonName(name); err == nil && n == number {
			return season, true
		}
	}
	return SeasonSource{}, false
}

// SeasonNumbers returns the parseable season numbers of the show in ascending order.
func (s ShowSource) SeasonNumbers() []int {
	out := make([]int, 0, len(s.Seasons))
	for name := range s.Seasons {
		if n, err := ParseSeasonName(name); err == nil {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// EpisodeKeys returns the season's episode file keys in sorted order.
func (s SeasonSource) EpisodeKeys() []string {
	out := make([]string, 0, len(s.Episodes))
	for k := range s.Episodes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Backed reports whether the episode carries a video reference.
func (e EpisodeSource) Backed() bool {
	return e.Video != ""
}

// BackedEpisodeKeys returns the sorted file keys of episodes with a video.
func (s SeasonSource) BackedEpisodeKeys() []string {
	out := make([]string, 0, len(s.Episodes))
	for k, ep := range s.Episodes {
		if ep.Backed() {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Backed reports whether any parseable season of the show has an episode
// with a video. Shows that are not backed are pruned by orphan cleanup.
func (s ShowSource) Backed() bool {
	for _, n := range s.SeasonNumbers() {
		season, _ := s.Season(n)
		for _, ep := range season.Episodes {
			if ep.Backed() {
				return true
			}
		}
	}
	return false
}

// Movie looks up a movie entry.
func (s *Snapshot) Movie(key string) (MovieSource, bool) {
	if s == nil {
		return MovieSource{}, false
	}
	m, ok := s.Movies[key]
	return m, ok
}

// Show looks up a show entry.
func (s *Snapshot) Show(key string) (ShowSource, bool) {
	if s == nil {
		return ShowSource{}, false
	}
	sh, ok := s.TV[key]
	return sh, ok
}

// Episode looks up an episode entry through its show and season.
func (s *Snapshot) Episode(showKey string, seasonNumber int, fileKey string) (EpisodeSource, bool) {
	show, ok := s.Show(showKey)
	if !ok {
		return EpisodeSource{}, false
	}
	season, ok := show.Season(seasonNumber)
	if !ok {
		return EpisodeSource{}, false
	}
	ep, ok := season.Episodes[fileKey]
	return ep, ok
}

// MovieKeys returns the snapshot's movie keys in sorted order.
func (s *Snapshot) MovieKeys() []string {
	out := make([]string, 0, len(s.Movies))
	for k := range s.Movies {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ShowKeys returns the snapshot's show keys in sorted order.
func (s *Snapshot) ShowKeys() []string {
	out := make([]string, 0, len(s.TV))
	for k := range s.TV {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BackedShowKeys returns the sorted keys of shows with at least one episode
// that has a video.
func (s *Snapshot) BackedShowKeys() []string {
	out := make([]string, 0, len(s.TV))
	for k, show := range s.TV {
		if show.Backed() {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
