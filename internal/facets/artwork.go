// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package facets

import (
	"context"

	"github.com/tomtom215/catalogd/internal/changedetect"
	"github.com/tomtom215/catalogd/internal/fieldpath"
	"github.com/tomtom215/catalogd/internal/lockedfields"
	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/snapshot"
)

var (
	artworkURLs = []fieldpath.Field{
		fieldpath.PosterURL,
		fieldpath.BackdropURL,
		fieldpath.LogoURL,
		fieldpath.ThumbnailURL,
	}
	artworkPlaceholders = []fieldpath.Field{
		fieldpath.PosterBlurhash,
		fieldpath.BackdropBlurhash,
		fieldpath.ThumbnailBlurhash,
	}
)

// Artwork reconciles poster, backdrop, logo and thumbnail URLs together with
// their blur placeholders.
type Artwork struct {
	cache  PlaceholderCache
	source PlaceholderSource
}

// NewArtwork creates the artwork aggregator. With a nil source blur
// placeholders are left untouched.
func NewArtwork(cache PlaceholderCache, source PlaceholderSource) *Artwork {
	return &Artwork{cache: cache, source: source}
}

// Name implements Aggregator.
func (a *Artwork) Name() string { return "artwork" }

// Aggregate implements Aggregator.
func (a *Artwork) Aggregate(ctx context.Context, in *Input) (*Update, error) {
	u := newUpdate(a.Name())
	resolveSimple(in, u, artworkURLs...)

	if a.source == nil {
		return u, nil
	}
	locks := in.Entity.Locks()
	for _, f := range artworkPlaceholders {
		p := fieldpath.Of(f)
		if lockedfields.IsLocked(locks, p) {
			continue
		}
		w, ok := winner(in, p)
		if !ok {
			continue
		}
		ref, ok := w.Value.(snapshot.BlurhashRef)
		if !ok {
			continue
		}
		hash, ok := a.placeholder(ctx, w.Server, ref.URL)
		if !ok {
			continue
		}
		current, _ := in.Entity.Get(p)
		if changedetect.Equal(current, hash) {
			continue
		}
		u.set(p, hash, w.Server.ID)
	}
	return u, nil
}

// placeholder resolves a blur placeholder through the cache. A failed fetch
// falls back to the cached value so a flaky text endpoint never clears one.
func (a *Artwork) placeholder(ctx context.Context, server models.ServerConfig, url string) (string, bool) {
	var previous *models.Placeholder
	if a.cache != nil {
		previous, _ = a.cache.Get(ctx, url)
	}

	fetched, unchanged, err := a.source.FetchPlaceholder(ctx, server, url, previous)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("url", logging.SanitizeURL(url)).Msg("Blur placeholder fetch failed")
		if previous != nil {
			return previous.Hash, true
		}
		return "", false
	}
	if fetched == nil {
		if previous != nil {
			_, _ = a.cache.Invalidate(ctx, url)
		}
		return "", false
	}
	if !unchanged && a.cache != nil {
		if err := a.cache.Put(ctx, fetched); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("url", logging.SanitizeURL(url)).Msg("Blur placeholder cache write failed")
		}
	}
	return fetched.Hash, true
}
