// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package fetch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/syncerr"
)

// MetadataFetcher loads metadata documents from source servers, caching
// parsed documents by absolute URL.
type MetadataFetcher struct {
	client *Client
	cache  cache.Cacher
}

// NewMetadataFetcher creates a fetcher. A nil cache disables caching.
func NewMetadataFetcher(client *Client, c cache.Cacher) *MetadataFetcher {
	return &MetadataFetcher{client: client, cache: c}
}

func metadataKey(serverID, url string) string {
	return "meta:" + serverID + ":" + url
}

// FetchMetadata returns the parsed document at relPath on server. A missing
// document yields (nil, nil).
func (f *MetadataFetcher) FetchMetadata(ctx context.Context, server models.ServerConfig, relPath string) (models.Metadata, error) {
	url := server.ResolveURL(relPath)
	key := metadataKey(server.ID, url)

	if f.cache != nil {
		if v, ok := f.cache.Get(key); ok {
			if doc, ok := v.(models.Metadata); ok {
				return doc, nil
			}
		}
	}

	resp, err := f.client.Do(ctx, server, Request{URL: url, Kind: "metadata"})
	if errors.Is(err, ErrNotFound) {
		logging.Ctx(ctx).Debug().Str("url", logging.SanitizeURL(url)).Msg("Metadata document not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc models.Metadata
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, syncerr.NewValidationError(relPath, "decode metadata", err)
	}
	if f.cache != nil {
		f.cache.Set(key, doc)
	}
	return doc, nil
}

// Invalidate drops cached documents whose URL matches a wildcard pattern.
func (f *MetadataFetcher) Invalidate(pattern string) int {
	if f.cache == nil {
		return 0
	}
	return f.cache.DeleteMatching("meta:" + pattern)
}

// PlaceholderFetcher reads blur placeholder text files with conditional
// requests so an unchanged placeholder costs a 304.
type PlaceholderFetcher struct {
	client *Client
}

// NewPlaceholderFetcher creates a PlaceholderFetcher.
func NewPlaceholderFetcher(client *Client) *PlaceholderFetcher {
	return &PlaceholderFetcher{client: client}
}

// FetchPlaceholder fetches the placeholder at url. When previous is set its
// validators are sent; a 304 or an "unchanged" body returns previous with
// unchanged=true. A missing file returns (nil, false, nil).
func (f *PlaceholderFetcher) FetchPlaceholder(ctx context.Context, server models.ServerConfig, url string, previous *models.Placeholder) (*models.Placeholder, bool, error) {
	req := Request{URL: url, Kind: "placeholder"}
	if previous != nil {
		req.IfNoneMatch = previous.ETag
		req.IfModifiedSince = previous.LastModified
	}

	resp, err := f.client.Do(ctx, server, req)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	body := strings.TrimSpace(string(resp.Body))
	if previous != nil && (resp.NotModified || strings.EqualFold(body, "unchanged")) {
		return previous, true, nil
	}
	if resp.NotModified || body == "" {
		return nil, false, nil
	}
	return &models.Placeholder{
		URL:          url,
		Hash:         body,
		ETag:         resp.ETag,
		LastModified: resp.LastModified,
		FetchedAt:    time.Now().UTC(),
	}, false, nil
}
