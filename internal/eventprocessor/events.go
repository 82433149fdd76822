// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/catalogd/internal/models"
)

// EventType names a lifecycle phase.
type EventType string

const (
	EventStarted  EventType = "started"
	EventProgress EventType = "progress"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// EventTypes lists every lifecycle phase in publish order.
func EventTypes() []EventType {
	return []EventType{EventStarted, EventProgress, EventError, EventComplete}
}

const topicPrefix = "catalog.sync."

// Topic returns the bus topic for t.
func (t EventType) Topic() string {
	return topicPrefix + string(t)
}

// Event is one lifecycle notification.
//
// For batch-level events (started, complete) EntityID is empty and Data
// holds a BatchInfo. For entity-level events Data holds the SyncResult.
type Event struct {
	ID            string           `json:"id"`
	Type          EventType        `json:"type"`
	EntityID      string           `json:"entityId,omitempty"`
	MediaType     models.MediaType `json:"mediaType,omitempty"`
	Operation     models.Operation `json:"operation,omitempty"`
	ServerID      string           `json:"serverId"`
	BatchID       string           `json:"batchId,omitempty"`
	CorrelationID string           `json:"correlationId,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
	Data          json.RawMessage  `json:"data,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current time.
func NewEvent(t EventType, serverID string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		ServerID:  serverID,
		Timestamp: time.Now().UTC(),
	}
}

// ResultEvent builds the progress or error event for one settled entity
// operation.
func ResultEvent(batchID string, r *models.SyncResult) *Event {
	t := EventProgress
	if r.Status == models.StatusFailed {
		t = EventError
	}
	e := NewEvent(t, r.ServerID)
	e.BatchID = batchID
	e.EntityID = r.EntityID
	e.MediaType = r.MediaType
	e.Operation = r.Operation
	e.Timestamp = r.Timestamp
	e.Data = mustRaw(r)
	if len(r.Errors) > 0 {
		e.Error = r.Errors[0]
	}
	return e
}

// BatchInfo is the payload of started and complete events.
type BatchInfo struct {
	MediaType models.MediaType     `json:"mediaType"`
	Keys      int                  `json:"keys"`
	Summary   *models.BatchSummary `json:"summary,omitempty"`
	Duration  time.Duration        `json:"duration,omitempty"`
	Errors    []string             `json:"errors,omitempty"`
}

// BatchEvent builds a started or complete event.
func BatchEvent(t EventType, batchID, serverID string, info *BatchInfo) *Event {
	e := NewEvent(t, serverID)
	e.BatchID = batchID
	e.MediaType = info.MediaType
	e.Data = mustRaw(info)
	return e
}

// Result decodes Data as a SyncResult.
func (e *Event) Result() (*models.SyncResult, error) {
	var r models.SyncResult
	if err := json.Unmarshal(e.Data, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}

// Batch decodes Data as a BatchInfo.
func (e *Event) Batch() (*BatchInfo, error) {
	var b BatchInfo
	if err := json.Unmarshal(e.Data, &b); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return &b, nil
}

// mustRaw encodes payload types that always marshal.
func mustRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// Validate checks required fields.
func (e *Event) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	case e.Type == "":
		return fmt.Errorf("%w: missing type", ErrInvalidEvent)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	for _, t := range EventTypes() {
		if e.Type == t {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
}

// Topic returns the bus topic the event is published on.
func (e *Event) Topic() string {
	return e.Type.Topic()
}
