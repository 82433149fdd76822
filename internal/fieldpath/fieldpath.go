// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package fieldpath defines the closed set of entity field paths that the
// reconciliation engine reads, writes, locks and attributes to servers.
//
// A Path is a tagged union: a Field drawn from a fixed enumeration plus an
// optional key for keyed collections (caption languages). Paths are comparable
// and can be used directly as map keys. Their String form is the dotted path
// used in locked-field trees and stored documents, e.g.
//
//	fieldpath.Of(fieldpath.QualityDolbyVision).String()
//	// "mediaQuality.viewingExperience.dolbyVision"
//
//	fieldpath.Caption("English").String()
//	// "captionURLs.English"
package fieldpath

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPath is returned by Parse for paths outside the closed set.
var ErrUnknownPath = errors.New("unknown field path")

// Field enumerates every reconcilable field.
type Field uint8

const (
	Invalid Field = iota
	Title
	Metadata
	VideoURL
	Duration
	Dimensions
	HDR
	Size
	MediaLastModified
	MediaQuality
	QualityFormat
	QualityBitDepth
	QualityColorSpace
	QualityTransfer
	QualityIsHDR
	QualityDolbyVision
	QualityHDR10Plus
	PosterURL
	PosterBlurhash
	BackdropURL
	BackdropBlurhash
	LogoURL
	ThumbnailURL
	ThumbnailBlurhash
	Captions
	ChapterURL

	fieldCount
)

type fieldSpec struct {
	name   string
	source string
	parent Field
	keyed  bool
}

var specs = [fieldCount]fieldSpec{
	Invalid:            {name: ""},
	Title:              {name: "title"},
	Metadata:           {name: "metadata"},
	VideoURL:           {name: "videoURL", source: "videoSource"},
	Duration:           {name: "duration"},
	Dimensions:         {name: "dimensions"},
	HDR:                {name: "hdr"},
	Size:               {name: "size"},
	MediaLastModified:  {name: "mediaLastModified"},
	MediaQuality:       {name: "mediaQuality"},
	QualityFormat:      {name: "mediaQuality.format", parent: MediaQuality},
	QualityBitDepth:    {name: "mediaQuality.bitDepth", parent: MediaQuality},
	QualityColorSpace:  {name: "mediaQuality.colorSpace", parent: MediaQuality},
	QualityTransfer:    {name: "mediaQuality.transferCharacteristics", parent: MediaQuality},
	QualityIsHDR:       {name: "mediaQuality.isHDR", parent: MediaQuality},
	QualityDolbyVision: {name: "mediaQuality.viewingExperience.dolbyVision", parent: MediaQuality},
	QualityHDR10Plus:   {name: "mediaQuality.viewingExperience.hdr10Plus", parent: MediaQuality},
	PosterURL:          {name: "posterURL"},
	PosterBlurhash:     {name: "posterBlurhash"},
	BackdropURL:        {name: "backdrop"},
	BackdropBlurhash:   {name: "backdropBlurhash"},
	LogoURL:            {name: "logo"},
	ThumbnailURL:       {name: "thumbnail"},
	ThumbnailBlurhash:  {name: "thumbnailBlurhash"},
	Captions:           {name: "captionURLs", keyed: true},
	ChapterURL:         {name: "chapterURL"},
}

// byName is the reverse lookup used by Parse.
var byName = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f := Title; f < fieldCount; f++ {
		m[specs[f].name] = f
	}
	return m
}()

// String returns the dotted name of the field.
func (f Field) String() string {
	if f >= fieldCount {
		return ""
	}
	return specs[f].name
}

// Valid reports whether f is a member of the closed set.
func (f Field) Valid() bool {
	return f > Invalid && f < fieldCount
}

// Keyed reports whether paths of this field carry a collection key.
func (f Field) Keyed() bool {
	return f.Valid() && specs[f].keyed
}

// Parent returns the containing structured field, or Invalid for top-level fields.
func (f Field) Parent() Field {
	if !f.Valid() {
		return Invalid
	}
	return specs[f].parent
}

// QualityFields lists the sub-fields of the mediaQuality descriptor.
func QualityFields() []Field {
	return []Field{
		QualityFormat,
		QualityBitDepth,
		QualityColorSpace,
		QualityTransfer,
		QualityIsHDR,
		QualityDolbyVision,
		QualityHDR10Plus,
	}
}

// All returns every field in declaration order.
func All() []Field {
	out := make([]Field, 0, fieldCount-1)
	for f := Title; f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// Path addresses one reconcilable value on an entity.
type Path struct {
	Field Field
	Key   string
}

// Of returns the path of an unkeyed field.
func Of(f Field) Path {
	return Path{Field: f}
}

// Caption returns the path of a single caption language.
func Caption(language string) Path {
	return Path{Field: Captions, Key: language}
}

// Valid reports whether the path names a known field with a key only where allowed.
func (p Path) Valid() bool {
	if !p.Field.Valid() {
		return false
	}
	if p.Field.Keyed() {
		return true
	}
	return p.Key == ""
}

// String renders the dotted form of the path.
func (p Path) String() string {
	name := p.Field.String()
	if p.Key == "" {
		return name
	}
	return name + "." + p.Key
}

// Segments splits the dotted form into its components. The collection key is
// always one segment even if it contains dots.
func (p Path) Segments() []string {
	segs := strings.Split(p.Field.String(), ".")
	if p.Key != "" {
		segs = append(segs, p.Key)
	}
	return segs
}

// SourceKey is the attribution key stored alongside the value, e.g. videoSource.
func (p Path) SourceKey() string {
	f := p.Field
	if parent := f.Parent(); parent != Invalid {
		f = parent
	}
	if !f.Valid() {
		return ""
	}
	if src := specs[f].source; src != "" {
		return src
	}
	if p.Key != "" && f == p.Field {
		return specs[f].name + "." + p.Key + "Source"
	}
	return specs[f].name + "Source"
}

// Parent returns the path of the structured value containing p.
func (p Path) Parent() (Path, bool) {
	parent := p.Field.Parent()
	if parent == Invalid {
		return Path{}, false
	}
	return Of(parent), true
}

// MarshalText implements encoding.TextMarshaler so paths can key JSON maps.
func (p Path) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: field %d", ErrUnknownPath, p.Field)
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Parse converts a dotted path back into a Path.
func Parse(s string) (Path, error) {
	if f, ok := byName[s]; ok && !f.Keyed() {
		return Of(f), nil
	}
	for f := Title; f < fieldCount; f++ {
		if !specs[f].keyed {
			continue
		}
		prefix := specs[f].name + "."
		if strings.HasPrefix(s, prefix) && len(s) > len(prefix) {
			return Path{Field: f, Key: s[len(prefix):]}, nil
		}
	}
	return Path{}, fmt.Errorf("%w: %q", ErrUnknownPath, s)
}

// MustParse is Parse for compile-time constant paths in tests and tables.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}
