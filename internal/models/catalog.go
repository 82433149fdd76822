// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogd/internal/fieldpath"
)

// MediaType identifies the kind of catalog entity.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeTVShow  MediaType = "tv"
	MediaTypeSeason  MediaType = "season"
	MediaTypeEpisode MediaType = "episode"
)

// Operation is one phase of per-entity synchronization.
type Operation string

const (
	OperationMetadata Operation = "metadata"
	OperationAssets   Operation = "assets"
	OperationContent  Operation = "content"
)

// Operations returns every operation in the order they must run for one entity.
// Later operations may depend on fields established by earlier ones.
func Operations() []Operation {
	return []Operation{OperationMetadata, OperationAssets, OperationContent}
}

// SyncVersion is the document layout version written on every upsert.
const SyncVersion = 2

// Metadata is a parsed metadata document as served by a source server.
type Metadata map[string]any

// Entity is the uniform view the facet aggregators use to read and write
// reconcilable fields. Implementations own a closed subset of fieldpath paths;
// Set returns ErrFieldNotSupported for anything else.
type Entity interface {
	EntityKey() string
	Type() MediaType
	Get(p fieldpath.Path) (any, bool)
	Set(p fieldpath.Path, value any) error
	Locks() LockedFields
	SourceOf(p fieldpath.Path) string
	SetSource(p fieldpath.Path, serverID string)
	ClearSource(p fieldpath.Path)
}

// LockedFields is a sparse tree mirroring entity structure. A true leaf marks
// the path (and everything beneath it) immutable to automated writes.
type LockedFields map[string]any

// Attribution records which server supplied the current value of each field.
type Attribution struct {
	Sources SourceMap `json:"sources,omitempty"`
}

// SourceMap maps a field path to the server that supplied it. It encodes as
// an object keyed by dotted path.
type SourceMap map[fieldpath.Path]string

// MarshalJSON implements json.Marshaler.
func (m SourceMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	flat := make(map[string]string, len(m))
	for p, s := range m {
		flat[p.String()] = s
	}
	return json.Marshal(flat)
}

// UnmarshalJSON implements json.Unmarshaler. Unknown paths are dropped.
func (m *SourceMap) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if flat == nil {
		*m = nil
		return nil
	}
	out := make(SourceMap, len(flat))
	for k, s := range flat {
		p, err := fieldpath.Parse(k)
		if err != nil {
			continue
		}
		out[p] = s
	}
	*m = out
	return nil
}

// SourceOf returns the server that supplied p, or "".
func (a *Attribution) SourceOf(p fieldpath.Path) string {
	if a.Sources == nil {
		return ""
	}
	return a.Sources[p]
}

// SetSource attributes p to serverID.
func (a *Attribution) SetSource(p fieldpath.Path, serverID string) {
	if a.Sources == nil {
		a.Sources = make(SourceMap)
	}
	a.Sources[p] = serverID
}

// ClearSource drops the attribution for p.
func (a *Attribution) ClearSource(p fieldpath.Path) {
	delete(a.Sources, p)
}

// Flatten renders attribution as <field>Source keys.
func (a *Attribution) Flatten() map[string]string {
	out := make(map[string]string, len(a.Sources))
	for p, s := range a.Sources {
		out[p.SourceKey()] = s
	}
	return out
}

// MediaQuality describes the technical quality profile of a video file.
// It is always replaced as one value; a descriptor assembled from several
// servers is not a valid profile.
type MediaQuality struct {
	Format                  string            `json:"format,omitempty"`
	BitDepth                int               `json:"bitDepth,omitempty"`
	ColorSpace              string            `json:"colorSpace,omitempty"`
	TransferCharacteristics string            `json:"transferCharacteristics,omitempty"`
	IsHDR                   bool              `json:"isHDR,omitempty"`
	ViewingExperience       ViewingExperience `json:"viewingExperience"`
}

// ViewingExperience holds the HDR flavour flags of a MediaQuality.
type ViewingExperience struct {
	DolbyVision bool `json:"dolbyVision,omitempty"`
	HDR10Plus   bool `json:"hdr10Plus,omitempty"`
}

// Has reports whether the descriptor carries a value for the given sub-field.
func (q *MediaQuality) Has(f fieldpath.Field) bool {
	if q == nil {
		return false
	}
	switch f {
	case fieldpath.QualityFormat:
		return q.Format != ""
	case fieldpath.QualityBitDepth:
		return q.BitDepth != 0
	case fieldpath.QualityColorSpace:
		return q.ColorSpace != ""
	case fieldpath.QualityTransfer:
		return q.TransferCharacteristics != ""
	case fieldpath.QualityIsHDR:
		return q.IsHDR
	case fieldpath.QualityDolbyVision:
		return q.ViewingExperience.DolbyVision
	case fieldpath.QualityHDR10Plus:
		return q.ViewingExperience.HDR10Plus
	default:
		return false
	}
}

// Caption is one subtitle track of a movie or episode.
type Caption struct {
	Language       string `json:"language"`
	SrcLang        string `json:"srcLang"`
	URL            string `json:"url"`
	LastModified   string `json:"lastModified,omitempty"`
	SourceServerID string `json:"sourceServerId"`
}

// VideoInfo groups the technical fields of a playable file.
type VideoInfo struct {
	VideoURL          string        `json:"videoURL,omitempty"`
	Duration          int64         `json:"duration,omitempty"`
	Dimensions        string        `json:"dimensions,omitempty"`
	HDR               string        `json:"hdr,omitempty"`
	Size              int64         `json:"size,omitempty"`
	MediaLastModified string        `json:"mediaLastModified,omitempty"`
	MediaQuality      *MediaQuality `json:"mediaQuality,omitempty"`
}

// Artwork groups the visual assets of a movie or show.
type Artwork struct {
	PosterURL        string `json:"posterURL,omitempty"`
	PosterBlurhash   string `json:"posterBlurhash,omitempty"`
	BackdropURL      string `json:"backdrop,omitempty"`
	BackdropBlurhash string `json:"backdropBlurhash,omitempty"`
	LogoURL          string `json:"logo,omitempty"`
}

// Movie is the canonical record of a film.
type Movie struct {
	Key          string   `json:"key" validate:"required"`
	Title        string   `json:"title"`
	Metadata     Metadata `json:"metadata,omitempty"`
	MetadataHash string   `json:"metadataHash,omitempty"`
	Artwork
	VideoInfo
	Captions     []Caption    `json:"captions,omitempty"`
	ChapterURL   string       `json:"chapterURL,omitempty"`
	LockedFields LockedFields `json:"lockedFields,omitempty"`
	Attribution
	LastSynced  time.Time `json:"lastSynced"`
	SyncVersion int       `json:"syncVersion"`
}

// TVShow is the canonical record of a series with its nested seasons.
type TVShow struct {
	Key          string   `json:"key" validate:"required"`
	Title        string   `json:"title"`
	Metadata     Metadata `json:"metadata,omitempty"`
	MetadataHash string   `json:"metadataHash,omitempty"`
	Artwork
	Seasons      []*Season    `json:"seasons,omitempty" validate:"dive"`
	LockedFields LockedFields `json:"lockedFields,omitempty"`
	Attribution
	LastSynced  time.Time `json:"lastSynced"`
	SyncVersion int       `json:"syncVersion"`
}

// Season is one season of a TVShow.
type Season struct {
	ShowKey        string       `json:"showKey"`
	SeasonNumber   int          `json:"seasonNumber" validate:"gte=0"`
	Title          string       `json:"title"`
	PosterURL      string       `json:"posterURL,omitempty"`
	PosterBlurhash string       `json:"posterBlurhash,omitempty"`
	Episodes       []*Episode   `json:"episodes,omitempty" validate:"dive"`
	LockedFields   LockedFields `json:"lockedFields,omitempty"`
	Attribution
}

// Episode is one episode of a Season.
type Episode struct {
	ShowKey       string   `json:"showKey"`
	SeasonNumber  int      `json:"seasonNumber"`
	EpisodeNumber int      `json:"episodeNumber"`
	FileKey       string   `json:"fileKey" validate:"required"`
	Title         string   `json:"title"`
	Metadata      Metadata `json:"metadata,omitempty"`
	MetadataHash  string   `json:"metadataHash,omitempty"`
	VideoInfo
	ThumbnailURL      string       `json:"thumbnail,omitempty"`
	ThumbnailBlurhash string       `json:"thumbnailBlurhash,omitempty"`
	Captions          []Caption    `json:"captions,omitempty"`
	ChapterURL        string       `json:"chapterURL,omitempty"`
	LockedFields      LockedFields `json:"lockedFields,omitempty"`
	Attribution
}

// SeasonKey builds the reconciliation key of a season.
func SeasonKey(showKey string, number int) string {
	return showKey + "/" + SeasonName(number)
}

// EpisodeKey builds the reconciliation key of an episode.
func EpisodeKey(showKey string, seasonNumber int, fileKey string) string {
	return SeasonKey(showKey, seasonNumber) + "/" + fileKey
}

// SeasonName renders the snapshot folder name of a season.
func SeasonName(number int) string {
	return "Season " + strconv.Itoa(number)
}

var seasonNamePattern = regexp.MustCompile(`(?i)^season\s*(\d+)$`)

// ParseSeasonName extracts the season number from a "Season N" folder name.
func ParseSeasonName(name string) (int, error) {
	m := seasonNamePattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0, fmt.Errorf("invalid season name %q", name)
	}
	return strconv.Atoi(m[1])
}

var episodeNumberPattern = regexp.MustCompile(`(?i)S(\d{1,3})E(\d{1,4})`)

// ParseEpisodeNumber extracts the episode number from an SxxEyy file key.
func ParseEpisodeNumber(fileKey string) (int, bool) {
	m := episodeNumberPattern.FindStringSubmatch(fileKey)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Season returns the season with the given number, or nil.
func (s *TVShow) Season(number int) *Season {
	for _, season := range s.Seasons {
		if season.SeasonNumber == number {
			return season
		}
	}
	return nil
}

// EnsureSeason returns the season with the given number, appending it if absent.
func (s *TVShow) EnsureSeason(number int) (*Season, bool) {
	if season := s.Season(number); season != nil {
		return season, false
	}
	season := &Season{
		ShowKey:      s.Key,
		SeasonNumber: number,
		Title:        SeasonName(number),
	}
	s.Seasons = append(s.Seasons, season)
	return season, true
}

// RemoveSeason drops a season and reports whether it existed.
func (s *TVShow) RemoveSeason(number int) bool {
	for i, season := range s.Seasons {
		if season.SeasonNumber == number {
			s.Seasons = append(s.Seasons[:i], s.Seasons[i+1:]...)
			return true
		}
	}
	return false
}

// Episode returns the episode with the given file key, or nil.
func (s *Season) Episode(fileKey string) *Episode {
	for _, ep := range s.Episodes {
		if ep.FileKey == fileKey {
			return ep
		}
	}
	return nil
}

// EnsureEpisode returns the episode with the given file key, appending it if absent.
func (s *Season) EnsureEpisode(fileKey string) (*Episode, bool) {
	if ep := s.Episode(fileKey); ep != nil {
		return ep, false
	}
	ep := &Episode{
		ShowKey:      s.ShowKey,
		SeasonNumber: s.SeasonNumber,
		FileKey:      fileKey,
	}
	if n, ok := ParseEpisodeNumber(fileKey); ok {
		ep.EpisodeNumber = n
	}
	s.Episodes = append(s.Episodes, ep)
	return ep, true
}

// RemoveEpisode drops an episode and reports whether it existed.
func (s *Season) RemoveEpisode(fileKey string) bool {
	for i, ep := range s.Episodes {
		if ep.FileKey == fileKey {
			s.Episodes = append(s.Episodes[:i], s.Episodes[i+1:]...)
			return true
		}
	}
	return false
}
