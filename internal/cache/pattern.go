// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package cache

import (
	"regexp"
	"strings"
)

// compilePattern turns a wildcard pattern into an anchored regexp. "*" matches
// any run of characters including "/", so "placeholder:*/Severance/*" reaches
// every asset beneath a show. All other characters match literally.
func compilePattern(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// Match reports whether key matches the wildcard pattern.
func Match(pattern, key string) bool {
	return compilePattern(pattern).MatchString(key)
}
