// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import (
	"sort"
	"strings"
)

// IsEnglish reports whether a caption language name refers to English.
func IsEnglish(language string) bool {
	return strings.Contains(strings.ToLower(language), "english")
}

// SortCaptions orders captions English-first and otherwise keeps their
// existing relative order. The slice is sorted in place and returned.
func SortCaptions(captions []Caption) []Caption {
	sort.SliceStable(captions, func(i, j int) bool {
		return IsEnglish(captions[i].Language) && !IsEnglish(captions[j].Language)
	})
	return captions
}

// CaptionLanguages returns the languages of captions in order.
func CaptionLanguages(captions []Caption) []string {
	out := make([]string, len(captions))
	for i, c := range captions {
		out[i] = c.Language
	}
	return out
}
