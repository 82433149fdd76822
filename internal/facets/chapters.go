// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package facets

import (
	"context"

	"github.com/tomtom215/catalogd/internal/fieldpath"
)

// Chapters reconciles the chapter file URL.
type Chapters struct{}

// NewChapters creates the chapters aggregator.
func NewChapters() *Chapters { return &Chapters{} }

// Name implements Aggregator.
func (c *Chapters) Name() string { return "chapters" }

// Aggregate implements Aggregator.
func (c *Chapters) Aggregate(_ context.Context, in *Input) (*Update, error) {
	u := newUpdate(c.Name())
	resolveSimple(in, u, fieldpath.ChapterURL)
	return u, nil
}
