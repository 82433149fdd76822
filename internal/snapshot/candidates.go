// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package snapshot

import (
	"sort"

	"github.com/tomtom215/catalogd/internal/fieldpath"
	"github.com/tomtom215/catalogd/internal/models"
)

// MetadataRef points at a metadata document on a source server.
type MetadataRef struct {
	RelPath string
	URL     string
	Hash    string
}

// BlurhashRef points at a blur placeholder text file on a source server.
type BlurhashRef struct {
	RelPath string
	URL     string
}

// Candidates is every value a server supplies for one entity, keyed by path.
// URL-valued fields are resolved against the server. Quality sub-fields are
// listed individually so availability can be tracked per sub-field; the
// MediaQuality path carries the whole descriptor.
type Candidates map[fieldpath.Path]any

// MovieCandidates extracts the values a server supplies for a movie.
func MovieCandidates(server models.ServerConfig, src models.MovieSource) Candidates {
	c := Candidates{}
	c.putString(fieldpath.Title, src.Title)
	c.putMetadata(server, src.Metadata, src.MetadataHash)
	c.putURL(server, fieldpath.PosterURL, src.Poster)
	c.putBlurhash(server, fieldpath.PosterBlurhash, src.PosterBlurhash)
	c.putURL(server, fieldpath.BackdropURL, src.Backdrop)
	c.putBlurhash(server, fieldpath.BackdropBlurhash, src.BackdropBlurhash)
	c.putURL(server, fieldpath.LogoURL, src.Logo)
	c.putContent(server, src.ContentSource)
	return c
}

// ShowCandidates extracts the show-level values a server supplies.
func ShowCandidates(server models.ServerConfig, src models.ShowSource) Candidates {
	c := Candidates{}
	c.putString(fieldpath.Title, src.Title)
	c.putMetadata(server, src.Metadata, src.MetadataHash)
	c.putURL(server, fieldpath.PosterURL, src.Poster)
	c.putBlurhash(server, fieldpath.PosterBlurhash, src.PosterBlurhash)
	c.putURL(server, fieldpath.BackdropURL, src.Backdrop)
	c.putBlurhash(server, fieldpath.BackdropBlurhash, src.BackdropBlurhash)
	c.putURL(server, fieldpath.LogoURL, src.Logo)
	return c
}

// SeasonCandidates extracts the values a server supplies for a season.
func SeasonCandidates(server models.ServerConfig, src models.SeasonSource) Candidates {
	c := Candidates{}
	c.putURL(server, fieldpath.PosterURL, src.Poster)
	c.putBlurhash(server, fieldpath.PosterBlurhash, src.PosterBlurhash)
	return c
}

// EpisodeCandidates extracts the values a server supplies for an episode.
func EpisodeCandidates(server models.ServerConfig, src models.EpisodeSource) Candidates {
	c := Candidates{}
	c.putString(fieldpath.Title, src.Title)
	c.putMetadata(server, src.Metadata, src.MetadataHash)
	c.putURL(server, fieldpath.ThumbnailURL, src.Thumbnail)
	c.putBlurhash(server, fieldpath.ThumbnailBlurhash, src.ThumbnailBlurhash)
	c.putContent(server, src.ContentSource)
	return c
}

func (c Candidates) putString(f fieldpath.Field, v string) {
	if v != "" {
		c[fieldpath.Of(f)] = v
	}
}

func (c Candidates) putURL(server models.ServerConfig, f fieldpath.Field, rel string) {
	if rel != "" {
		c[fieldpath.Of(f)] = server.ResolveURL(rel)
	}
}

func (c Candidates) putBlurhash(server models.ServerConfig, f fieldpath.Field, rel string) {
	if rel != "" {
		c[fieldpath.Of(f)] = BlurhashRef{RelPath: rel, URL: server.ResolveURL(rel)}
	}
}

func (c Candidates) putMetadata(server models.ServerConfig, rel, hash string) {
	if rel != "" {
		c[fieldpath.Of(fieldpath.Metadata)] = MetadataRef{RelPath: rel, URL: server.ResolveURL(rel), Hash: hash}
	}
}

func (c Candidates) putContent(server models.ServerConfig, src models.ContentSource) {
	c.putURL(server, fieldpath.VideoURL, src.Video)
	if src.Length > 0 {
		c[fieldpath.Of(fieldpath.Duration)] = src.Length
	}
	c.putString(fieldpath.Dimensions, src.Dimensions)
	c.putString(fieldpath.HDR, src.HDR)
	if src.Size > 0 {
		c[fieldpath.Of(fieldpath.Size)] = src.Size
	}
	c.putString(fieldpath.MediaLastModified, src.MediaLastModified)
	if q := src.MediaQuality; q != nil {
		copied := *q
		c[fieldpath.Of(fieldpath.MediaQuality)] = &copied
		for _, f := range fieldpath.QualityFields() {
			if q.Has(f) {
				c[fieldpath.Of(f)] = true
			}
		}
	}
	for _, lang := range src.SubtitleLanguages() {
		sub := src.Subtitles[lang]
		if sub.URL == "" {
			continue
		}
		c[fieldpath.Caption(lang)] = models.Caption{
			Language:       lang,
			SrcLang:        sub.SrcLang,
			URL:            server.ResolveURL(sub.URL),
			LastModified:   sub.LastModified,
			SourceServerID: server.ID,
		}
	}
	c.putURL(server, fieldpath.ChapterURL, src.Chapters)
}

// Captions returns the caption candidates English-first, then alphabetically.
func (c Candidates) Captions() []models.Caption {
	var out []models.Caption
	for p, v := range c {
		if p.Field != fieldpath.Captions {
			continue
		}
		if caption, ok := v.(models.Caption); ok {
			out = append(out, caption)
		}
	}
	sortCaptions(out)
	return out
}

func sortCaptions(captions []models.Caption) {
	sort.Slice(captions, func(i, j int) bool {
		ei, ej := models.IsEnglish(captions[i].Language), models.IsEnglish(captions[j].Language)
		if ei != ej {
			return ei
		}
		return captions[i].Language < captions[j].Language
	})
}
