// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package logging

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		notWant string
	}{
		{"empty", "", "", ""},
		{"plain", "http://a.local/api/media-list", "http://a.local/api/media-list", ""},
		{"userinfo stripped", "https://user:pw@a.local/list", "https://a.local/list", "pw"},
		{"token masked", "https://a.local/list?token=secret123&page=2", "page=2", "secret123"},
		{"api key masked", "https://a.local/list?API_KEY=zzz", "API_KEY=%2A%2A%2A", "zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SanitizeURL(tt.in)
			if !strings.Contains(got, tt.want) {
				t.Errorf("SanitizeURL(%q) = %q, want it to contain %q", tt.in, got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("SanitizeURL(%q) = %q leaks %q", tt.in, got, tt.notWant)
			}
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"", ""},
		{"short", "***"},
		{"exactly12chr", "***"},
		{"abcd1234567890wxyz", "abcd...wxyz"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if SanitizeError(nil) != "" {
		t.Error("nil error should be empty")
	}
	long := errors.New(strings.Repeat("x", 500))
	if got := SanitizeError(long); len(got) != 303 || !strings.HasSuffix(got, "...") {
		t.Errorf("long error not truncated: len=%d", len(got))
	}
}
