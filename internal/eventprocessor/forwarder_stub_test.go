// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

//go:build !nats

package eventprocessor

import (
	"errors"
	"testing"
)

func TestNewBusNATSRequiresTag(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.NATS.Enabled = true
	if _, err := NewBus(cfg); !errors.Is(err, ErrNATSNotEnabled) {
		t.Errorf("NewBus() error = %v, want ErrNATSNotEnabled", err)
	}
}
