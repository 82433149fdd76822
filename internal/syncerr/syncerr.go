// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package syncerr defines the error taxonomy of the reconciliation engine.
//
// Every error carries a Kind and wraps its cause, so callers can match either
// the category with errors.As or the underlying sentinel with errors.Is:
//
//	var nerr *syncerr.NetworkError
//	if errors.As(err, &nerr) {
//	    // fetch or probe failure
//	}
//	if errors.Is(err, repository.ErrNotFound) { ... }
//
// The orchestrator converts every per-entity error into a Failed result; the
// kind only decides how it is logged and counted.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind categorizes an engine error.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNetwork     Kind = "network"
	KindPersistence Kind = "persistence"
	KindStrategy    Kind = "strategy"
	KindUnknown     Kind = "unknown"
)

// ValidationError reports an entity that violates its shape constraints.
type ValidationError struct {
	EntityKey string
	Message   string
	Cause     error
}

// NewValidationError creates a ValidationError.
func NewValidationError(entityKey, message string, cause error) *ValidationError {
	return &ValidationError{EntityKey: entityKey, Message: message, Cause: cause}
}

func (e *ValidationError) Error() string {
	return format("validation", e.EntityKey, e.Message, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error { return e.Cause }

// Kind returns KindValidation.
func (e *ValidationError) Kind() Kind { return KindValidation }

// NetworkError reports a failed fetch or probe against a source server.
type NetworkError struct {
	ServerID string
	URL      string
	Status   int
	Cause    error
}

// NewNetworkError creates a NetworkError. URL should already be sanitized.
func NewNetworkError(serverID, url string, status int, cause error) *NetworkError {
	return &NetworkError{ServerID: serverID, URL: url, Status: status, Cause: cause}
}

func (e *NetworkError) Error() string {
	msg := "request to " + e.URL
	if e.Status != 0 {
		msg = fmt.Sprintf("%s returned HTTP %d", msg, e.Status)
	}
	return format("network", e.ServerID, msg, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *NetworkError) Unwrap() error { return e.Cause }

// Kind returns KindNetwork.
func (e *NetworkError) Kind() Kind { return KindNetwork }

// PersistenceError reports a failed read or write against the canonical store.
type PersistenceError struct {
	Op        string
	EntityKey string
	Cause     error
}

// NewPersistenceError creates a PersistenceError.
func NewPersistenceError(op, entityKey string, cause error) *PersistenceError {
	return &PersistenceError{Op: op, EntityKey: entityKey, Cause: cause}
}

func (e *PersistenceError) Error() string {
	return format("persistence", e.EntityKey, e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *PersistenceError) Unwrap() error { return e.Cause }

// Kind returns KindPersistence.
func (e *PersistenceError) Kind() Kind { return KindPersistence }

// StrategyError reports a failure inside a sync strategy, including recovered panics.
type StrategyError struct {
	Strategy  string
	Operation string
	EntityKey string
	Cause     error
}

// NewStrategyError creates a StrategyError.
func NewStrategyError(strategy, operation, entityKey string, cause error) *StrategyError {
	return &StrategyError{Strategy: strategy, Operation: operation, EntityKey: entityKey, Cause: cause}
}

func (e *StrategyError) Error() string {
	return format("strategy "+e.Strategy, e.EntityKey, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StrategyError) Unwrap() error { return e.Cause }

// Kind returns KindStrategy.
func (e *StrategyError) Kind() Kind { return KindStrategy }

// ErrPanic wraps values recovered from a panicking strategy.
var ErrPanic = errors.New("strategy panicked")

// FromPanic converts a recovered value into an error wrapping ErrPanic.
func FromPanic(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}

// KindOf returns the kind of the outermost categorized error in err's chain.
func KindOf(err error) Kind {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

func format(category, subject, message string, cause error) string {
	s := category + " error"
	if subject != "" {
		s += " [" + subject + "]"
	}
	if message != "" {
		s += ": " + message
	}
	if cause != nil {
		s += ": " + cause.Error()
	}
	return s
}
