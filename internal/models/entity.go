// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/tomtom215/catalogd/internal/fieldpath"
)

// ErrFieldNotSupported is returned by Entity.Set for paths the entity does not own.
var ErrFieldNotSupported = errors.New("field not supported by entity")

// ErrInvalidValue is returned by Entity.Set when a value has the wrong type.
var ErrInvalidValue = errors.New("invalid field value")

func unsupported(t MediaType, p fieldpath.Path) error {
	return fmt.Errorf("%w: %s on %s", ErrFieldNotSupported, p, t)
}

func invalid(p fieldpath.Path, v any) error {
	return fmt.Errorf("%w: %s = %T", ErrInvalidValue, p, v)
}

func asString(p fieldpath.Path, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", invalid(p, v)
	}
}

func asInt64(p fieldpath.Path, v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(math.Round(n)), nil
	case string:
		if n == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, invalid(p, v)
		}
		return int64(math.Round(parsed)), nil
	default:
		return 0, invalid(p, v)
	}
}

func asTimestamp(p fieldpath.Path, v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "", nil
		}
		return t.UTC().Format(time.RFC3339), nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return "", nil
		}
		return t.UTC().Format(time.RFC3339), nil
	default:
		return asString(p, v)
	}
}

func asMetadata(p fieldpath.Path, v any) (Metadata, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case Metadata:
		return m, nil
	case map[string]any:
		return Metadata(m), nil
	default:
		return nil, invalid(p, v)
	}
}

func asQuality(p fieldpath.Path, v any) (*MediaQuality, error) {
	switch q := v.(type) {
	case nil:
		return nil, nil
	case *MediaQuality:
		if q == nil {
			return nil, nil
		}
		c := *q
		return &c, nil
	case MediaQuality:
		return &q, nil
	default:
		return nil, invalid(p, v)
	}
}

func present[T comparable](v T) (any, bool) {
	var zero T
	return v, v != zero
}

// get and set for the VideoInfo fields shared by movies and episodes.
func (v *VideoInfo) get(p fieldpath.Path) (any, bool, bool) {
	switch p.Field {
	case fieldpath.VideoURL:
		val, ok := present(v.VideoURL)
		return val, ok, true
	case fieldpath.Duration:
		val, ok := present(v.Duration)
		return val, ok, true
	case fieldpath.Dimensions:
		val, ok := present(v.Dimensions)
		return val, ok, true
	case fieldpath.HDR:
		val, ok := present(v.HDR)
		return val, ok, true
	case fieldpath.Size:
		val, ok := present(v.Size)
		return val, ok, true
	case fieldpath.MediaLastModified:
		val, ok := present(v.MediaLastModified)
		return val, ok, true
	case fieldpath.MediaQuality:
		if v.MediaQuality == nil {
			return nil, false, true
		}
		c := *v.MediaQuality
		return &c, true, true
	}
	if p.Field.Parent() == fieldpath.MediaQuality {
		if !v.MediaQuality.Has(p.Field) {
			return nil, false, true
		}
		return qualityValue(v.MediaQuality, p.Field), true, true
	}
	return nil, false, false
}

func qualityValue(q *MediaQuality, f fieldpath.Field) any {
	switch f {
	case fieldpath.QualityFormat:
		return q.Format
	case fieldpath.QualityBitDepth:
		return q.BitDepth
	case fieldpath.QualityColorSpace:
		return q.ColorSpace
	case fieldpath.QualityTransfer:
		return q.TransferCharacteristics
	case fieldpath.QualityIsHDR:
		return q.IsHDR
	case fieldpath.QualityDolbyVision:
		return q.ViewingExperience.DolbyVision
	case fieldpath.QualityHDR10Plus:
		return q.ViewingExperience.HDR10Plus
	}
	return nil
}

func (v *VideoInfo) set(p fieldpath.Path, value any) (bool, error) {
	var err error
	switch p.Field {
	case fieldpath.VideoURL:
		v.VideoURL, err = asString(p, value)
	case fieldpath.Duration:
		v.Duration, err = asInt64(p, value)
	case fieldpath.Dimensions:
		v.Dimensions, err = asString(p, value)
	case fieldpath.HDR:
		v.HDR, err = asString(p, value)
	case fieldpath.Size:
		v.Size, err = asInt64(p, value)
	case fieldpath.MediaLastModified:
		v.MediaLastModified, err = asTimestamp(p, value)
	case fieldpath.MediaQuality:
		v.MediaQuality, err = asQuality(p, value)
	default:
		return false, nil
	}
	return true, err
}

func (a *Artwork) get(p fieldpath.Path) (any, bool, bool) {
	var s string
	switch p.Field {
	case fieldpath.PosterURL:
		s = a.PosterURL
	case fieldpath.PosterBlurhash:
		s = a.PosterBlurhash
	case fieldpath.BackdropURL:
		s = a.BackdropURL
	case fieldpath.BackdropBlurhash:
		s = a.BackdropBlurhash
	case fieldpath.LogoURL:
		s = a.LogoURL
	default:
		return nil, false, false
	}
	val, ok := present(s)
	return val, ok, true
}

func (a *Artwork) set(p fieldpath.Path, value any) (bool, error) {
	s, err := asString(p, value)
	if err != nil {
		return true, err
	}
	switch p.Field {
	case fieldpath.PosterURL:
		a.PosterURL = s
	case fieldpath.PosterBlurhash:
		a.PosterBlurhash = s
	case fieldpath.BackdropURL:
		a.BackdropURL = s
	case fieldpath.BackdropBlurhash:
		a.BackdropBlurhash = s
	case fieldpath.LogoURL:
		a.LogoURL = s
	default:
		return false, nil
	}
	return true, nil
}

func getCaptions(captions []Caption, p fieldpath.Path) (any, bool) {
	if p.Key == "" {
		if len(captions) == 0 {
			return nil, false
		}
		return append([]Caption(nil), captions...), true
	}
	for _, c := range captions {
		if c.Language == p.Key {
			return c, true
		}
	}
	return nil, false
}

func setCaptions(captions []Caption, p fieldpath.Path, value any) ([]Caption, error) {
	if p.Key == "" {
		switch list := value.(type) {
		case nil:
			return nil, nil
		case []Caption:
			return SortCaptions(append([]Caption(nil), list...)), nil
		default:
			return captions, invalid(p, value)
		}
	}

	idx := -1
	for i, c := range captions {
		if c.Language == p.Key {
			idx = i
			break
		}
	}
	switch c := value.(type) {
	case nil:
		if idx < 0 {
			return captions, nil
		}
		out := append([]Caption(nil), captions[:idx]...)
		return append(out, captions[idx+1:]...), nil
	case Caption:
		c.Language = p.Key
		out := append([]Caption(nil), captions...)
		if idx >= 0 {
			out[idx] = c
		} else {
			out = append(out, c)
		}
		return SortCaptions(out), nil
	default:
		return captions, invalid(p, value)
	}
}

// EntityKey implements Entity.
func (m *Movie) EntityKey() string { return m.Key }

// Type implements Entity.
func (m *Movie) Type() MediaType { return MediaTypeMovie }

// Locks implements Entity.
func (m *Movie) Locks() LockedFields { return m.LockedFields }

// Get implements Entity.
func (m *Movie) Get(p fieldpath.Path) (any, bool) {
	switch p.Field {
	case fieldpath.Title:
		return present(m.Title)
	case fieldpath.Metadata:
		return m.Metadata, len(m.Metadata) > 0
	case fieldpath.ChapterURL:
		return present(m.ChapterURL)
	case fieldpath.Captions:
		return getCaptions(m.Captions, p)
	}
	if v, ok, handled := m.Artwork.get(p); handled {
		return v, ok
	}
	if v, ok, handled := m.VideoInfo.get(p); handled {
		return v, ok
	}
	return nil, false
}

// Set implements Entity.
func (m *Movie) Set(p fieldpath.Path, value any) error {
	var err error
	switch p.Field {
	case fieldpath.Title:
		m.Title, err = asString(p, value)
		return err
	case fieldpath.Metadata:
		m.Metadata, err = asMetadata(p, value)
		return err
	case fieldpath.ChapterURL:
		m.ChapterURL, err = asString(p, value)
		return err
	case fieldpath.Captions:
		m.Captions, err = setCaptions(m.Captions, p, value)
		return err
	}
	if handled, err := m.Artwork.set(p, value); handled {
		return err
	}
	if handled, err := m.VideoInfo.set(p, value); handled {
		return err
	}
	return unsupported(MediaTypeMovie, p)
}

// EntityKey implements Entity.
func (s *TVShow) EntityKey() string { return s.Key }

// Type implements Entity.
func (s *TVShow) Type() MediaType { return MediaTypeTVShow }

// Locks implements Entity.
func (s *TVShow) Locks() LockedFields { return s.LockedFields }

// Get implements Entity.
func (s *TVShow) Get(p fieldpath.Path) (any, bool) {
	switch p.Field {
	case fieldpath.Title:
		return present(s.Title)
	case fieldpath.Metadata:
		return s.Metadata, len(s.Metadata) > 0
	}
	if v, ok, handled := s.Artwork.get(p); handled {
		return v, ok
	}
	return nil, false
}

// Set implements Entity.
func (s *TVShow) Set(p fieldpath.Path, value any) error {
	var err error
	switch p.Field {
	case fieldpath.Title:
		s.Title, err = asString(p, value)
		return err
	case fieldpath.Metadata:
		s.Metadata, err = asMetadata(p, value)
		return err
	}
	if handled, err := s.Artwork.set(p, value); handled {
		return err
	}
	return unsupported(MediaTypeTVShow, p)
}

// EntityKey implements Entity.
func (s *Season) EntityKey() string { return SeasonKey(s.ShowKey, s.SeasonNumber) }

// Type implements Entity.
func (s *Season) Type() MediaType { return MediaTypeSeason }

// Locks implements Entity.
func (s *Season) Locks() LockedFields { return s.LockedFields }

// Get implements Entity.
func (s *Season) Get(p fieldpath.Path) (any, bool) {
	switch p.Field {
	case fieldpath.Title:
		return present(s.Title)
	case fieldpath.PosterURL:
		return present(s.PosterURL)
	case fieldpath.PosterBlurhash:
		return present(s.PosterBlurhash)
	}
	return nil, false
}

// Set implements Entity.
func (s *Season) Set(p fieldpath.Path, value any) error {
	var err error
	switch p.Field {
	case fieldpath.Title:
		s.Title, err = asString(p, value)
	case fieldpath.PosterURL:
		s.PosterURL, err = asString(p, value)
	case fieldpath.PosterBlurhash:
		s.PosterBlurhash, err = asString(p, value)
	default:
		return unsupported(MediaTypeSeason, p)
	}
	return err
}

// EntityKey implements Entity.
func (e *Episode) EntityKey() string { return EpisodeKey(e.ShowKey, e.SeasonNumber, e.FileKey) }

// Type implements Entity.
func (e *Episode) Type() MediaType { return MediaTypeEpisode }

// Locks implements Entity.
func (e *Episode) Locks() LockedFields { return e.LockedFields }

// Get implements Entity.
func (e *Episode) Get(p fieldpath.Path) (any, bool) {
	switch p.Field {
	case fieldpath.Title:
		return present(e.Title)
	case fieldpath.Metadata:
		return e.Metadata, len(e.Metadata) > 0
	case fieldpath.ThumbnailURL:
		return present(e.ThumbnailURL)
	case fieldpath.ThumbnailBlurhash:
		return present(e.ThumbnailBlurhash)
	case fieldpath.ChapterURL:
		return present(e.ChapterURL)
	case fieldpath.Captions:
		return getCaptions(e.Captions, p)
	}
	if v, ok, handled := e.VideoInfo.get(p); handled {
		return v, ok
	}
	return nil, false
}

// Set implements Entity.
func (e *Episode) Set(p fieldpath.Path, value any) error {
	var err error
	switch p.Field {
	case fieldpath.Title:
		e.Title, err = asString(p, value)
		return err
	case fieldpath.Metadata:
		e.Metadata, err = asMetadata(p, value)
		return err
	case fieldpath.ThumbnailURL:
		e.ThumbnailURL, err = asString(p, value)
		return err
	case fieldpath.ThumbnailBlurhash:
		e.ThumbnailBlurhash, err = asString(p, value)
		return err
	case fieldpath.ChapterURL:
		e.ChapterURL, err = asString(p, value)
		return err
	case fieldpath.Captions:
		e.Captions, err = setCaptions(e.Captions, p, value)
		return err
	}
	if handled, err := e.VideoInfo.set(p, value); handled {
		return err
	}
	return unsupported(MediaTypeEpisode, p)
}

// StoredMetadataHash returns the content hash recorded with the last metadata write.
func (m *Movie) StoredMetadataHash() string { return m.MetadataHash }

// SetMetadataHash records the content hash of the current metadata.
func (m *Movie) SetMetadataHash(h string) { m.MetadataHash = h }

// StoredMetadataHash returns the content hash recorded with the last metadata write.
func (s *TVShow) StoredMetadataHash() string { return s.MetadataHash }

// SetMetadataHash records the content hash of the current metadata.
func (s *TVShow) SetMetadataHash(h string) { s.MetadataHash = h }

// StoredMetadataHash returns the content hash recorded with the last metadata write.
func (e *Episode) StoredMetadataHash() string { return e.MetadataHash }

// SetMetadataHash records the content hash of the current metadata.
func (e *Episode) SetMetadataHash(h string) { e.MetadataHash = h }
