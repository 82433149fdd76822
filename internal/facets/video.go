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
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/priority"
)

var videoFields = []fieldpath.Field{
	fieldpath.VideoURL,
	fieldpath.Duration,
	fieldpath.Dimensions,
	fieldpath.HDR,
	fieldpath.Size,
	fieldpath.MediaLastModified,
}

// Video reconciles the technical fields of a playable file.
//
// The mediaQuality descriptor is taken whole from one server: a server is
// eligible when it holds priority for any quality sub-field it supplies, and
// the most authoritative eligible server's descriptor replaces the stored one.
type Video struct{}

// NewVideo creates the video aggregator.
func NewVideo() *Video { return &Video{} }

// Name implements Aggregator.
func (v *Video) Name() string { return "video" }

// Aggregate implements Aggregator.
func (v *Video) Aggregate(_ context.Context, in *Input) (*Update, error) {
	u := newUpdate(v.Name())
	resolveSimple(in, u, videoFields...)

	p := fieldpath.Of(fieldpath.MediaQuality)
	locks := in.Entity.Locks()
	if lockedfields.IsLocked(locks, p) || anyQualityLocked(locks) {
		return u, nil
	}

	var offers []priority.Offer
	for _, s := range in.Sources {
		q, ok := s.Values[p].(*models.MediaQuality)
		if !ok || q == nil {
			continue
		}
		paths := []fieldpath.Path{p}
		for _, f := range fieldpath.QualityFields() {
			if _, supplied := s.Values[fieldpath.Of(f)]; supplied {
				paths = append(paths, fieldpath.Of(f))
			}
		}
		if priority.HasAnyPriority(in.Availability, in.MediaType(), in.Key(), paths, s.Server) {
			offers = append(offers, priority.Offer{Server: s.Server, Value: q})
		}
	}
	w, ok := priority.Winner(offers)
	if !ok {
		return u, nil
	}
	current, _ := in.Entity.Get(p)
	if !changedetect.Equal(current, w.Value) {
		u.set(p, w.Value, w.Server.ID)
	}
	return u, nil
}

// anyQualityLocked reports whether a single sub-field of the descriptor is
// locked; replacing the descriptor would overwrite it.
func anyQualityLocked(locks models.LockedFields) bool {
	for _, f := range fieldpath.QualityFields() {
		if lockedfields.IsLocked(locks, fieldpath.Of(f)) {
			return true
		}
	}
	return false
}
