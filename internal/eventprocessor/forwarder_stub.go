// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

//go:build !nats

package eventprocessor

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
)

// NATSForwarder is unavailable without the nats build tag.
type NATSForwarder struct{}

// NewNATSForwarder returns ErrNATSNotEnabled.
func NewNATSForwarder(_ NATSConfig, _ watermill.LoggerAdapter) (*NATSForwarder, error) {
	return nil, ErrNATSNotEnabled
}

// Forward implements Forwarder.
func (f *NATSForwarder) Forward(context.Context, string, []byte, *Event) error {
	return ErrNATSNotEnabled
}

// Close implements Forwarder.
func (f *NATSForwarder) Close() error { return nil }

var _ Forwarder = (*NATSForwarder)(nil)
