// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package logging

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameter names whose values never reach logs.
var sensitiveParams = map[string]bool{
	"token":         true,
	"access_token":  true,
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"secret":        true,
	"password":      true,
	"auth":          true,
	"signature":     true,
	"x-plex-token":  true,
	"authorization": true,
}

// SanitizeURL strips credentials and sensitive query values from a server URL.
//
//	SanitizeURL("https://user:pw@media.example/list?token=abc&page=2")
//	// "https://media.example/list?page=2&token=%2A%2A%2A"
func SanitizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return truncateString(raw, 64)
	}
	u.User = nil

	if u.RawQuery != "" {
		q := u.Query()
		for name := range q {
			if sensitiveParams[strings.ToLower(name)] {
				q.Set(name, "***")
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// SanitizeToken masks a token, showing only the first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeError truncates long error messages before they are logged or served.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return truncateString(err.Error(), 300)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
