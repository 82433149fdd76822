// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import "time"

// Placeholder is a cached blur placeholder string together with the HTTP
// validators needed to ask the server whether it changed.
type Placeholder struct {
	URL          string    `json:"url"`
	Hash         string    `json:"hash"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"lastModified,omitempty"`
	FetchedAt    time.Time `json:"fetchedAt"`
}
