// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package eventprocessor carries sync lifecycle events from the orchestrator
// to whoever listens: the websocket feed, log sinks, tests, and optionally a
// NATS subject.
//
// A Bus is an in-process watermill gochannel pub/sub. Each lifecycle phase
// has its own topic:
//
//	catalog.sync.started    a batch was accepted
//	catalog.sync.progress   one entity operation settled
//	catalog.sync.error      one entity operation failed
//	catalog.sync.complete   a batch settled, with its summary
//
// Buses are constructed, not global; every orchestrator gets the one it is
// given. Handlers run on the bus's goroutines and must not block for long.
// With Config.Synchronous set, Publish returns only after every subscriber
// acknowledged the event.
//
// Build with -tags=nats to forward every event to NATS as well:
//
//	bus, err := eventprocessor.NewBus(eventprocessor.Config{
//	    NATS: eventprocessor.NATSConfig{Enabled: true, URL: "nats://127.0.0.1:4222"},
//	})
package eventprocessor
