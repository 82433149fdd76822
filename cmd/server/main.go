// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/catalogd/internal/api"
	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/config"
	"github.com/tomtom215/catalogd/internal/eventprocessor"
	"github.com/tomtom215/catalogd/internal/fetch"
	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/orphans"
	"github.com/tomtom215/catalogd/internal/probe"
	"github.com/tomtom215/catalogd/internal/snapshot"
	"github.com/tomtom215/catalogd/internal/supervisor"
	"github.com/tomtom215/catalogd/internal/supervisor/services"
	catsync "github.com/tomtom215/catalogd/internal/sync"
	ws "github.com/tomtom215/catalogd/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logCfg := cfg.Logging.LoggerConfig()
	logCfg.Version = version
	logging.Init(logCfg)

	enabled := cfg.EnabledServers()
	logging.Info().
		Str("storage_backend", cfg.Storage.Backend).
		Int("servers", len(cfg.Servers)).
		Int("servers_enabled", len(enabled)).
		Str("mode", string(cfg.Sync.Mode)).
		Dur("interval", cfg.Sync.Interval).
		Msg("Starting catalogd")
	if len(enabled) == 0 {
		logging.Warn().Msg("No enabled servers configured; passes will leave the catalog untouched")
	}

	// Caches
	metadataCache := cache.NewCacher("metadata", cfg.Cache)
	placeholderCache := cache.NewCacher("placeholders", cfg.Cache)
	probeCache := cache.NewCacher("probe", cache.Config{Type: cache.TypeTTL, TTL: cfg.Probe.CacheTTL})
	defer metadataCache.Close()
	defer placeholderCache.Close()
	defer probeCache.Close()

	store, err := openStorage(cfg, placeholderCache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	bus, err := eventprocessor.NewBus(cfg.Events)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to connect the NATS forwarder; lifecycle events stay in-process")
		bus = eventprocessor.NewLocalBus(cfg.Events)
	}

	// Upstream access
	client := fetch.NewClient(cfg.Fetch, nil)
	metadata := fetch.NewMetadataFetcher(client, metadataCache)
	prober := probe.NewHTTPProber(client, enabled, probeCache, cfg.Probe.Concurrency)

	registry := catsync.DefaultRegistry(catsync.Dependencies{
		Metadata:          metadata,
		Placeholders:      store.placeholders,
		PlaceholderSource: fetch.NewPlaceholderFetcher(client),
		HashShortCircuit:  cfg.Sync.HashShortCircuit,
	})
	orchestrator := catsync.NewOrchestrator(store.repo, registry, bus, cfg.Sync)

	applier := orphans.NewApplier(store.repo,
		orphans.InvalidatorFunc(func(_ context.Context, pattern string) (int, error) {
			return metadata.Invalidate(pattern), nil
		}),
		orphans.InvalidatorFunc(func(_ context.Context, pattern string) (int, error) {
			return prober.Invalidate(pattern), nil
		}),
		store.placeholders,
	)

	manager := catsync.NewManager(cfg.Sync, catsync.ManagerDeps{
		Servers:      cfg.Servers,
		Loader:       snapshot.NewLoader(client),
		Orchestrator: orchestrator,
		Repository:   store.repo,
		Applier:      applier,
		Prober:       prober,
	})

	// Live feed
	hub := ws.NewHub()
	unsubscribe, err := hub.Attach(bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to attach websocket hub to the event bus")
	}
	defer unsubscribe()
	manager.SetOnPassCompleted(func(pass *catsync.PassResult) {
		hub.BroadcastPassCompleted(ws.PassCompletedData{
			PassID:         pass.ID,
			DurationMs:     pass.Duration.Milliseconds(),
			Batches:        len(pass.Batches),
			FailedServers:  pass.FailedServers,
			OrphansSkipped: pass.OrphansSkipped,
			Error:          pass.Error,
		})
		if stats, err := store.repo.Stats(context.Background()); err == nil {
			hub.BroadcastJSON(ws.MessageTypeStatsUpdate, stats)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Admin API
	handler := api.NewHandler(ctx, api.HandlerDeps{
		Repository:     store.repo,
		Sync:           manager,
		WebSocket:      ws.NewHandler(hub, cfg.Server.CORSOrigins),
		StorageBackend: cfg.Storage.Backend,
		ServersEnabled: len(enabled),
		Version:        version,
	})
	mw := api.NewChiMiddlewareFromConfig(cfg.Server.CORSOrigins, cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow)
	router := api.NewRouter(handler, mw).SetupChi()
	newServer := func() services.HTTPServer {
		return &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Server.Timeout,
			WriteTimeout:      cfg.Server.Timeout,
			IdleTimeout:       60 * time.Second,
		}
	}

	// Supervisor tree
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	if store.kv != nil {
		tree.AddDataService(store.kv)
	}
	tree.AddMessagingService(services.NewCloserService("event-bus", bus))
	tree.AddMessagingService(hub)
	tree.AddMessagingService(manager)
	tree.AddAPIService(services.NewHTTPServerService(newServer, 10*time.Second))
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Admin API service added")

	watchConfig()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("catalogd stopped")
}

// watchConfig reapplies the log level when the config file changes. Every
// other setting needs a restart.
func watchConfig() {
	path := config.FindConfigFile()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		next, err := config.LoadFile(path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		if next.Logging.Level != logging.GetLevel().String() {
			logging.SetLevelString(next.Logging.Level)
			logging.Info().Str("level", next.Logging.Level).Msg("Log level changed")
		}
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
