// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/database"
	"github.com/tomtom215/catalogd/internal/eventprocessor"
	"github.com/tomtom215/catalogd/internal/fetch"
	"github.com/tomtom215/catalogd/internal/kvstore"
	"github.com/tomtom215/catalogd/internal/models"
	catsync "github.com/tomtom215/catalogd/internal/sync"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/catalogd/config.yaml",
	"/etc/catalogd/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// ServersEnvVar lists servers as comma-separated id=url pairs. List order
// sets priority, first is most authoritative. It is only consulted when the
// config file defines no servers.
const ServersEnvVar = "SERVERS"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Sync: catsync.DefaultConfig(),
		Storage: StorageConfig{
			Backend: BackendDuckDB,
			DuckDB:  database.DefaultConfig(),
			Badger:  kvstore.DefaultConfig(),
		},
		Cache: cache.Config{
			Type:     cache.TypeLFU,
			TTL:      time.Hour,
			Capacity: 10000,
		},
		Probe: ProbeConfig{
			Concurrency: 8,
			CacheTTL:    10 * time.Minute,
		},
		Fetch:  fetch.DefaultConfig(),
		Events: eventprocessor.DefaultConfig(),
		Server: HTTPConfig{
			Host:              "0.0.0.0",
			Port:              8686,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from multiple sources with the following precedence
// (highest to lowest):
//
//  1. Environment Variables: Override any setting
//  2. Config File: Optional YAML config file (if exists)
//  3. Defaults: Built-in sensible defaults
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// SYNC_INTERVAL -> sync.interval
	// DUCKDB_PATH -> storage.duckdb.path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	applyServerDefaults(k, cfg)

	if len(cfg.Servers) == 0 {
		servers, err := parseServersEnv(os.Getenv(ServersEnvVar))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ServersEnvVar, err)
		}
		cfg.Servers = servers
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FindConfigFile returns the file Load reads, or "" when none exists.
func FindConfigFile() string {
	return findConfigFile()
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyServerDefaults enables servers whose file entry omits "enabled".
func applyServerDefaults(k *koanf.Koanf, cfg *Config) {
	for i, sub := range k.Slices("servers") {
		if i >= len(cfg.Servers) {
			break
		}
		if !sub.Exists("enabled") {
			cfg.Servers[i].Enabled = true
		}
	}
}

// parseServersEnv parses "id=url,id=url". Priorities follow list order.
func parseServersEnv(raw string) ([]models.ServerConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var servers []models.ServerConfig
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, url, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(id) == "" || strings.TrimSpace(url) == "" {
			return nil, fmt.Errorf("entry %q must look like id=url", part)
		}
		servers = append(servers, models.ServerConfig{
			ID:       strings.TrimSpace(id),
			Priority: len(servers),
			BaseURL:  strings.TrimSpace(url),
			Enabled:  true,
		})
	}
	return servers, nil
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
	"sync.operations",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Sync
	"sync_interval":           "sync.interval",
	"sync_mode":               "sync.mode",
	"sync_concurrency":        "sync.concurrency",
	"sync_operations":         "sync.operations",
	"sync_hash_short_circuit": "sync.hash_short_circuit",
	"sync_orphan_cleanup":     "sync.orphan_cleanup",
	"sync_probe_verify":       "sync.probe_verify",
	"sync_run_on_start":       "sync.run_on_start",

	// Storage
	"storage_backend":    "storage.backend",
	"duckdb_path":        "storage.duckdb.path",
	"duckdb_max_memory":  "storage.duckdb.max_memory",
	"duckdb_threads":     "storage.duckdb.threads",
	"badger_path":        "storage.badger.path",
	"badger_in_memory":   "storage.badger.in_memory",
	"badger_sync_writes": "storage.badger.sync_writes",
	"badger_gc_interval": "storage.badger.gc_interval",
	"placeholder_ttl":    "storage.badger.placeholder_ttl",

	// Cache
	"cache_type":     "cache.type",
	"cache_ttl":      "cache.ttl",
	"cache_capacity": "cache.capacity",

	// Probe
	"probe_concurrency": "probe.concurrency",
	"probe_cache_ttl":   "probe.cache_ttl",

	// Fetch
	"fetch_timeout":               "fetch.timeout",
	"fetch_rate_per_second":       "fetch.rate_per_second",
	"fetch_burst":                 "fetch.burst",
	"fetch_max_retries":           "fetch.max_retries",
	"fetch_retry_base_delay":      "fetch.retry_base_delay",
	"fetch_user_agent":            "fetch.user_agent",
	"fetch_breaker_timeout":       "fetch.breaker.timeout",
	"fetch_breaker_min_requests":  "fetch.breaker.min_requests",
	"fetch_breaker_failure_ratio": "fetch.breaker.failure_ratio",

	// Events
	"events_buffer_size":  "events.buffer_size",
	"events_synchronous":  "events.synchronous",
	"nats_enabled":        "events.nats.enabled",
	"nats_url":            "events.nats.url",
	"nats_subject_prefix": "events.nats.subject_prefix",
	"nats_jetstream":      "events.nats.jetstream",

	// HTTP server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - SYNC_INTERVAL -> sync.interval
//   - DUCKDB_PATH -> storage.duckdb.path
//   - NATS_URL -> events.nats.url
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// The caller is responsible for synchronizing access to the reloaded config.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
