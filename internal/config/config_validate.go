// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package config

import (
	"fmt"

	"github.com/tomtom215/catalogd/internal/validation"
)

// Validate checks the whole configuration. Struct tags are checked first;
// the rest covers rules the tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateServers(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateServers() error {
	for i, s := range c.Servers {
		field := fmt.Sprintf("servers[%d] (%s)", i, s.ID)
		if err := validateHTTPURL(s.BaseURL, field+" base_url"); err != nil {
			return err
		}
		if s.APIURL != "" {
			if err := validateHTTPURL(s.APIURL, field+" api_url"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Config) validateStorage() error {
	b := c.Storage.Badger
	if !b.InMemory && b.Path == "" {
		return fmt.Errorf("storage.badger.path is required unless storage.badger.in_memory is set")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.Events.NATS.URL); err != nil {
		return fmt.Errorf("events.nats.url: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	for _, origin := range c.Server.CORSOrigins {
		if err := validateOrigin(origin); err != nil {
			return fmt.Errorf("server.cors_origins: %w", err)
		}
	}
	return nil
}
