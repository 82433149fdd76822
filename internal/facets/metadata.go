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
	"github.com/tomtom215/catalogd/internal/syncerr"
)

// MetadataFetcher loads a metadata document from a server. A missing
// document is (nil, nil).
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, server models.ServerConfig, relPath string) (models.Metadata, error)
}

// Metadata reconciles the display title and the metadata document.
type Metadata struct {
	fetcher MetadataFetcher

	// HashShortCircuit skips fetching when the winning server's content hash
	// equals the stored one.
	HashShortCircuit bool
}

// NewMetadata creates the metadata aggregator.
func NewMetadata(fetcher MetadataFetcher, hashShortCircuit bool) *Metadata {
	return &Metadata{fetcher: fetcher, HashShortCircuit: hashShortCircuit}
}

// Name implements Aggregator.
func (m *Metadata) Name() string { return "metadata" }

// Aggregate implements Aggregator.
func (m *Metadata) Aggregate(ctx context.Context, in *Input) (*Update, error) {
	u := newUpdate(m.Name())
	resolveSimple(in, u, fieldpath.Title)

	p := fieldpath.Of(fieldpath.Metadata)
	locks := in.Entity.Locks()
	if lockedfields.IsLocked(locks, p) {
		return u, nil
	}
	w, ok := winner(in, p)
	if !ok {
		return u, nil
	}
	ref, ok := w.Value.(snapshot.MetadataRef)
	if !ok {
		return nil, syncerr.NewValidationError(in.Key(), "metadata candidate is not a reference", nil)
	}

	recorder, hashed := in.Entity.(hashRecorder)
	if m.HashShortCircuit && hashed && changedetect.Unchanged(recorder.StoredMetadataHash(), ref.Hash) {
		logging.Ctx(ctx).Trace().Str("key", in.Key()).Str("hash", ref.Hash).Msg("Metadata hash unchanged")
		return u, nil
	}

	fetched, err := m.fetcher.FetchMetadata(ctx, w.Server, ref.RelPath)
	if err != nil {
		return nil, err
	}
	if fetched == nil {
		return u, nil
	}

	current, _ := in.Entity.Get(p)
	stored, _ := current.(models.Metadata)
	merged := models.Metadata(lockedfields.Preserve(locks, p, stored, fetched))
	if !changedetect.Equal(map[string]any(stored), map[string]any(merged)) {
		u.set(p, merged, w.Server.ID)
	}
	if hashed && ref.Hash != "" {
		u.MetadataHash = ref.Hash
	}
	return u, nil
}
