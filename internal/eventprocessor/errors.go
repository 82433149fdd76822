// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package eventprocessor

import "errors"

// ErrNATSNotEnabled is returned when NATS forwarding is configured in a build
// without the nats tag.
var ErrNATSNotEnabled = errors.New("NATS event forwarding not enabled (build with -tags nats)")

// ErrBusClosed is returned by Publish and Subscribe after Close.
var ErrBusClosed = errors.New("event bus closed")

// ErrInvalidEvent is returned for events missing required fields.
var ErrInvalidEvent = errors.New("invalid event")
