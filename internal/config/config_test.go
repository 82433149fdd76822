// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/catalogd/internal/cache"
	"github.com/tomtom215/catalogd/internal/models"
	catsync "github.com/tomtom215/catalogd/internal/sync"
)

const sampleYAML = `
servers:
  - id: primary
    priority: 0
    base_url: http://media-1:8080
  - id: mirror
    priority: 1
    base_url: http://media-2:8080/mirror
    timeout: 10s
  - id: retired
    priority: 2
    base_url: http://media-3:8080
    enabled: false
sync:
  interval: 5m
  mode: sequential
storage:
  backend: badger
  badger:
    path: /tmp/catalogd-kv
server:
  port: 9000
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Sync.Interval != 15*time.Minute || cfg.Sync.Concurrency != catsync.DefaultConcurrency {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Sync.Mode != catsync.ModeBatch || !cfg.Sync.OrphanCleanup || !cfg.Sync.HashShortCircuit {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if len(cfg.Sync.Operations) != 3 {
		t.Errorf("Operations = %v, want all three", cfg.Sync.Operations)
	}
	if cfg.Storage.Backend != BackendDuckDB || cfg.Storage.DuckDB.Path != "/data/catalogd.duckdb" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Cache.Type != cache.TypeLFU {
		t.Errorf("Cache.Type = %q", cfg.Cache.Type)
	}
	if cfg.Server.Addr() != "0.0.0.0:8686" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if len(cfg.Servers) != 0 {
		t.Errorf("Servers = %v, want none", cfg.Servers)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if len(cfg.Servers) != 3 {
		t.Fatalf("Servers = %+v", cfg.Servers)
	}
	if !cfg.Servers[0].Enabled || !cfg.Servers[1].Enabled {
		t.Error("servers without an enabled key should be enabled")
	}
	if cfg.Servers[2].Enabled {
		t.Error("retired server should stay disabled")
	}
	if cfg.Servers[1].Timeout != 10*time.Second {
		t.Errorf("mirror timeout = %v", cfg.Servers[1].Timeout)
	}
	if got := cfg.EnabledServers(); len(got) != 2 || got[1].ID != "mirror" {
		t.Errorf("EnabledServers() = %+v", got)
	}

	if cfg.Sync.Interval != 5*time.Minute || cfg.Sync.Mode != catsync.ModeSequential {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	// Unset keys keep their defaults.
	if cfg.Sync.Concurrency != catsync.DefaultConcurrency {
		t.Errorf("Concurrency = %d", cfg.Sync.Concurrency)
	}
	if cfg.Storage.Backend != BackendBadger || cfg.Storage.Badger.Path != "/tmp/catalogd-kv" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Server.Port != 9000 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("SYNC_INTERVAL", "1m")
	t.Setenv("SYNC_OPERATIONS", "content, metadata")
	t.Setenv("DUCKDB_PATH", ":memory:")
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("CORS_ORIGINS", "http://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("UNRELATED_SETTING", "ignored")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Sync.Interval != time.Minute {
		t.Errorf("Interval = %v, want env value", cfg.Sync.Interval)
	}
	if cfg.Sync.Mode != catsync.ModeSequential {
		t.Errorf("Mode = %q, want file value", cfg.Sync.Mode)
	}
	ops := cfg.Sync.Operations
	if len(ops) != 2 || ops[0] != models.OperationContent || ops[1] != models.OperationMetadata {
		t.Errorf("Operations = %v", ops)
	}
	if cfg.Storage.DuckDB.Path != ":memory:" {
		t.Errorf("DuckDB.Path = %q", cfg.Storage.DuckDB.Path)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LoggerConfig().Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.Events.NATS.Enabled || cfg.Events.NATS.URL != "nats://bus:4222" {
		t.Errorf("NATS = %+v", cfg.Events.NATS)
	}
}

func TestLoadServersEnv(t *testing.T) {
	t.Setenv(ServersEnvVar, "primary=http://media-1:8080, mirror=http://media-2:8080")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("Servers = %+v", cfg.Servers)
	}
	if cfg.Servers[0].ID != "primary" || cfg.Servers[0].Priority != 0 || !cfg.Servers[0].Enabled {
		t.Errorf("Servers[0] = %+v", cfg.Servers[0])
	}
	if cfg.Servers[1].Priority != 1 || cfg.Servers[1].BaseURL != "http://media-2:8080" {
		t.Errorf("Servers[1] = %+v", cfg.Servers[1])
	}

	// File servers win.
	cfg, err = LoadFile(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Servers[0].BaseURL != "http://media-1:8080" || len(cfg.Servers) != 3 {
		t.Errorf("Servers = %+v, want file servers", cfg.Servers)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
		want string
	}{
		{
			name: "bad servers env",
			env:  map[string]string{ServersEnvVar: "primary"},
			want: "id=url",
		},
		{
			name: "bad mode",
			env:  map[string]string{"SYNC_MODE": "parallel"},
			want: "Sync.Mode",
		},
		{
			name: "bad yaml",
			yaml: "servers: [",
			want: "failed to load config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}
			_, err := LoadFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadFile() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Servers = []models.ServerConfig{
			{ID: "a", Priority: 0, BaseURL: "http://a.example", Enabled: true},
			{ID: "b", Priority: 1, BaseURL: "https://b.example/media", Enabled: true},
		}
		return cfg
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() on valid config = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"duplicate server ids", func(c *Config) { c.Servers[1].ID = "a" }, "Servers must not contain duplicates"},
		{"missing server id", func(c *Config) { c.Servers[0].ID = "" }, "Servers[0].ID is required"},
		{"relative base url", func(c *Config) { c.Servers[0].BaseURL = "media-1" }, "BaseURL"},
		{"ftp base url", func(c *Config) { c.Servers[0].BaseURL = "ftp://a.example" }, "scheme must be http or https"},
		{"query in base url", func(c *Config) { c.Servers[0].BaseURL = "http://a.example?token=x" }, "query parameters"},
		{"negative priority", func(c *Config) { c.Servers[0].Priority = -1 }, "Priority"},
		{"unknown operation", func(c *Config) { c.Sync.Operations = []models.Operation{"reindex"} }, "Operations[0]"},
		{"zero concurrency", func(c *Config) { c.Sync.Concurrency = 0 }, "Sync.Concurrency"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }, "Storage.Backend"},
		{"bad duckdb memory", func(c *Config) { c.Storage.DuckDB.MaxMemory = "plenty" }, "MaxMemory"},
		{"badger without path", func(c *Config) { c.Storage.Badger.Path = "" }, "storage.badger.path"},
		{"unknown cache type", func(c *Config) { c.Cache.Type = "arc" }, "Cache.Type"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "Server.Port"},
		{"bad origin", func(c *Config) { c.Server.CORSOrigins = []string{"example.com"} }, "cors_origins"},
		{"bad nats url", func(c *Config) { c.Events.NATS.Enabled = true; c.Events.NATS.URL = "http://bus" }, "events.nats.url"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "Logging.Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestBadgerInMemoryNeedsNoPath(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Storage.Badger.Path = ""
	cfg.Storage.Badger.InMemory = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"SYNC_INTERVAL":     "sync.interval",
		"DUCKDB_MAX_MEMORY": "storage.duckdb.max_memory",
		"NATS_URL":          "events.nats.url",
		"HTTP_PORT":         "server.port",
		"log_level":         "logging.level",
		"PATH":              "",
		"HOME":              "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	path := writeConfig(t, "sync:\n  interval: 1m\n")
	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sync.Interval != time.Minute {
		t.Errorf("Interval = %v, want value from CONFIG_PATH file", cfg.Sync.Interval)
	}
}
