// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package services

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// CloserService ties the lifetime of a resource to the supervisor tree. Serve
// blocks until the tree shuts down and then closes the resource once.
//
// Used for the event bus, which has no loop of its own:
//
//	tree.AddMessagingService(services.NewCloserService("event-bus", bus))
type CloserService struct {
	name   string
	closer io.Closer
	once   sync.Once
	err    error
}

// NewCloserService creates a service that closes c on shutdown.
func NewCloserService(name string, c io.Closer) *CloserService {
	return &CloserService{name: name, closer: c}
}

// Serve implements suture.Service.
func (s *CloserService) Serve(ctx context.Context) error {
	<-ctx.Done()
	s.once.Do(func() {
		if err := s.closer.Close(); err != nil {
			s.err = fmt.Errorf("%s close failed: %w", s.name, err)
		}
	})
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *CloserService) String() string {
	return s.name
}
