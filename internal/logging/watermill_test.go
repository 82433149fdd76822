// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestWatermillAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewWatermillAdapter(zerolog.New(&buf))

	scoped := adapter.With(watermill.LogFields{"topic": "sync.progress"})
	scoped.Info("Subscribed", watermill.LogFields{"subscriber": "ws"})
	scoped.Error("Publish failed", errors.New("closed"), nil)

	out := buf.String()
	for _, want := range []string{
		`"component":"watermill"`,
		`"topic":"sync.progress"`,
		`"subscriber":"ws"`,
		`"error":"closed"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s: %s", want, out)
		}
	}
}

func TestWatermillAdapterRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewWatermillAdapter(zerolog.New(&buf).Level(zerolog.InfoLevel))

	adapter.Debug("hidden", watermill.LogFields{"k": "v"})
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered: %s", buf.String())
	}
}
