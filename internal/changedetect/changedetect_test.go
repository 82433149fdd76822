// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package changedetect

import (
	"testing"
	"time"

	"github.com/tomtom215/catalogd/internal/models"
)

func TestEqual(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil vs empty string", nil, "", true},
		{"nil vs empty slice", nil, []string{}, true},
		{"nil vs empty map", map[string]any{}, nil, true},
		{"time vs text", ts, "2026-02-03T04:05:06Z", true},
		{"time vs offset text", ts, "2026-02-03T05:05:06+01:00", true},
		{"time pointer vs text", &ts, "2026-02-03T04:05:06Z", true},
		{"zero time vs nil", time.Time{}, nil, true},
		{"int vs float", 42, 42.0, true},
		{"int64 vs int", int64(7), 7, true},
		{"different strings", "a", "b", false},
		{"string vs nil", "a", nil, false},
		{"different times", ts, "2026-02-03T04:05:07Z", false},
		{
			"nested maps ignore empty entries",
			map[string]any{"title": "Heat", "tagline": ""},
			models.Metadata{"title": "Heat"},
			true,
		},
		{
			"nested maps differ",
			map[string]any{"title": "Heat", "year": 1995},
			map[string]any{"title": "Heat", "year": 1996},
			false,
		},
		{
			"struct vs decoded map",
			&models.MediaQuality{Format: "HEVC", BitDepth: 10},
			map[string]any{"format": "HEVC", "bitDepth": 10.0},
			true,
		},
		{
			"struct differs",
			&models.MediaQuality{Format: "HEVC", IsHDR: true},
			&models.MediaQuality{Format: "HEVC"},
			false,
		},
		{
			"caption slices",
			[]models.Caption{{Language: "English", URL: "en.vtt", SourceServerID: "a"}},
			[]any{map[string]any{"language": "English", "srcLang": "", "url": "en.vtt", "sourceServerId": "a"}},
			true,
		},
		{"slice order matters", []any{"a", "b"}, []any{"b", "a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestHashStable(t *testing.T) {
	t.Parallel()

	a := map[string]any{"title": "Heat", "year": 1995, "empty": ""}
	b := models.Metadata{"year": 1995.0, "title": "Heat"}

	if Hash(a) != Hash(b) {
		t.Errorf("equal values should hash identically: %s vs %s", Hash(a), Hash(b))
	}
	if Hash(a) == Hash(map[string]any{"title": "Heat", "year": 1996}) {
		t.Error("different values should hash differently")
	}
	if Hash(a) == "" {
		t.Error("hash should not be empty")
	}
}

func TestUnchanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stored, incoming string
		want             bool
	}{
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"", "", false},
		{"", "abc", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		if got := Unchanged(tt.stored, tt.incoming); got != tt.want {
			t.Errorf("Unchanged(%q, %q) = %v, want %v", tt.stored, tt.incoming, got, tt.want)
		}
	}
}
