// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

/*
Package supervisor builds the suture v4 supervisor tree that runs catalogd.

	catalogd (root)
	├── data-layer       badger value-log GC
	├── messaging-layer  event bus, websocket hub, pass manager
	└── api-layer        admin HTTP server

Failed services restart with backoff. After FailureThreshold failures
(decaying at FailureDecay per second) a supervisor waits FailureBackoff
before restarting again. Supervisor events are logged through sutureslog
into the zerolog pipeline via logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(store)
	tree.AddMessagingService(hub)
	tree.AddMessagingService(manager)
	tree.AddAPIService(services.NewHTTPServerService(newServer, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
