// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package config

import (
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/database"
	"github.com/tomtom215/catalogd/internal/eventprocessor"
	"github.com/tomtom215/catalogd/internal/fetch"
	"github.com/tomtom215/catalogd/internal/kvstore"
	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/models"
	catsync "github.com/tomtom215/catalogd/internal/sync"
)

// Storage backends.
const (
	BackendDuckDB = "duckdb"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds all application configuration.
//
// Each section is owned by the package that consumes it; this struct only
// composes them so one file and one environment can drive the whole process.
type Config struct {
	// Servers lists the source servers. Order does not matter; Priority does.
	Servers []models.ServerConfig `koanf:"servers" validate:"unique=ID,dive"`

	Sync    catsync.Config        `koanf:"sync"`
	Storage StorageConfig         `koanf:"storage"`
	Cache   cache.Config          `koanf:"cache"`
	Probe   ProbeConfig           `koanf:"probe"`
	Fetch   fetch.Config          `koanf:"fetch"`
	Events  eventprocessor.Config `koanf:"events"`
	Server  HTTPConfig            `koanf:"server"`
	Logging LoggingConfig         `koanf:"logging"`
}

// StorageConfig selects and configures the catalog repository.
//
// Environment Variables:
//   - STORAGE_BACKEND: duckdb, badger or memory (default: duckdb)
//   - DUCKDB_PATH: database file (default: /data/catalogd.duckdb)
//   - DUCKDB_MAX_MEMORY: buffer pool limit (default: 1GB)
//   - DUCKDB_THREADS: worker threads, 0 for every CPU (default: 0)
//   - BADGER_PATH: data directory (default: /data/catalogd-kv)
//   - BADGER_IN_MEMORY: keep badger data in RAM (default: false)
//   - PLACEHOLDER_TTL: how long cached blur placeholders live (default: 720h)
type StorageConfig struct {
	// Backend is the repository implementation.
	// The badger store always backs the placeholder cache, whichever backend
	// holds the catalog.
	Backend string `koanf:"backend" validate:"oneof=duckdb badger memory"`

	DuckDB database.Config `koanf:"duckdb"`
	Badger kvstore.Config  `koanf:"badger"`
}

// ProbeConfig controls asset reachability probes used by orphan detection.
type ProbeConfig struct {
	// Concurrency bounds in-flight HEAD requests per probe call.
	Concurrency int `koanf:"concurrency" validate:"gte=1,lte=128"`

	// CacheTTL is how long a probe answer is reused.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

// HTTPConfig holds admin API server settings.
//
// Environment Variables:
//   - HTTP_HOST: bind address (default: 0.0.0.0)
//   - HTTP_PORT: listen port (default: 8686)
//   - HTTP_TIMEOUT: request timeout (default: 30s)
//   - CORS_ORIGINS: comma-separated allowed origins (default: *)
//   - RATE_LIMIT_REQUESTS: requests per window per client IP (default: 100)
//   - RATE_LIMIT_WINDOW: rate limit window (default: 1m)
type HTTPConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// CORSOrigins lists the origins allowed to call the API. "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests of zero disables rate limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is the output format: json or console.
	// JSON is recommended for production (structured, machine-parseable).
	// Console is human-readable for development.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// LoggerConfig converts the logging section for logging.Init.
func (l LoggingConfig) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	return cfg
}

// EnabledServers returns the servers with Enabled set, in configuration order.
func (c *Config) EnabledServers() []models.ServerConfig {
	out := make([]models.ServerConfig, 0, len(c.Servers))
	for _, s := range c.Servers {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Addr returns the admin API listen address.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}
