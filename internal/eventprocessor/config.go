// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package eventprocessor

import "time"

// Config configures a Bus.
type Config struct {
	// BufferSize is the per-subscriber output buffer.
	BufferSize int64 `koanf:"buffer_size" validate:"gte=0"`

	// Synchronous makes Publish wait until every subscriber acknowledged.
	Synchronous bool `koanf:"synchronous"`

	NATS NATSConfig `koanf:"nats"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 256,
		NATS:       DefaultNATSConfig(),
	}
}

// NATSConfig configures the optional NATS forwarder.
type NATSConfig struct {
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url" validate:"required_if=Enabled true"`

	// SubjectPrefix is prepended to every topic, separated by a dot.
	SubjectPrefix string `koanf:"subject_prefix"`

	// JetStream publishes through JetStream instead of core NATS. The stream
	// must already exist.
	JetStream bool `koanf:"jetstream"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	Breaker CircuitBreakerConfig `koanf:"breaker"`
}

// DefaultNATSConfig returns forwarder defaults. Forwarding is off.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://127.0.0.1:4222",
		SubjectPrefix: "catalogd",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Breaker:       DefaultCircuitBreakerConfig("nats-forwarder"),
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string        `koanf:"name"`
	MaxRequests      uint32        `koanf:"max_requests"` // Allowed in half-open state
	Interval         time.Duration `koanf:"interval"`     // Reset interval for counts
	Timeout          time.Duration `koanf:"timeout"`      // Time to stay open
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
