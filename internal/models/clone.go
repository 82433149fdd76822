// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

// Clone returns a deep copy of the movie.
func (m *Movie) Clone() *Movie {
	if m == nil {
		return nil
	}
	c := *m
	c.Metadata = cloneMetadata(m.Metadata)
	c.VideoInfo = m.VideoInfo.clone()
	c.Captions = cloneCaptions(m.Captions)
	c.LockedFields = cloneLocks(m.LockedFields)
	c.Attribution = m.Attribution.clone()
	return &c
}

// Clone returns a deep copy of the show including its seasons and episodes.
func (s *TVShow) Clone() *TVShow {
	if s == nil {
		return nil
	}
	c := *s
	c.Metadata = cloneMetadata(s.Metadata)
	c.LockedFields = cloneLocks(s.LockedFields)
	c.Attribution = s.Attribution.clone()
	if s.Seasons != nil {
		c.Seasons = make([]*Season, len(s.Seasons))
		for i, season := range s.Seasons {
			c.Seasons[i] = season.Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the season including its episodes.
func (s *Season) Clone() *Season {
	if s == nil {
		return nil
	}
	c := *s
	c.LockedFields = cloneLocks(s.LockedFields)
	c.Attribution = s.Attribution.clone()
	if s.Episodes != nil {
		c.Episodes = make([]*Episode, len(s.Episodes))
		for i, ep := range s.Episodes {
			c.Episodes[i] = ep.Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the episode.
func (e *Episode) Clone() *Episode {
	if e == nil {
		return nil
	}
	c := *e
	c.Metadata = cloneMetadata(e.Metadata)
	c.VideoInfo = e.VideoInfo.clone()
	c.Captions = cloneCaptions(e.Captions)
	c.LockedFields = cloneLocks(e.LockedFields)
	c.Attribution = e.Attribution.clone()
	return &c
}

func (v VideoInfo) clone() VideoInfo {
	if v.MediaQuality != nil {
		q := *v.MediaQuality
		v.MediaQuality = &q
	}
	return v
}

func (a Attribution) clone() Attribution {
	if a.Sources == nil {
		return a
	}
	out := make(SourceMap, len(a.Sources))
	for k, v := range a.Sources {
		out[k] = v
	}
	return Attribution{Sources: out}
}

func cloneCaptions(c []Caption) []Caption {
	if c == nil {
		return nil
	}
	return append([]Caption(nil), c...)
}

func cloneMetadata(m Metadata) Metadata {
	if m == nil {
		return nil
	}
	return Metadata(cloneValue(map[string]any(m)).(map[string]any))
}

func cloneLocks(l LockedFields) LockedFields {
	if l == nil {
		return nil
	}
	return LockedFields(cloneValue(map[string]any(l)).(map[string]any))
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case LockedFields:
		return cloneValue(map[string]any(x))
	case Metadata:
		return cloneValue(map[string]any(x))
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
