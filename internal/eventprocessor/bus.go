// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package eventprocessor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/metrics"
)

// Handler receives one event. It runs on a bus goroutine; a panic is
// recovered and logged.
type Handler func(ctx context.Context, e *Event)

// Forwarder receives a copy of every published event.
type Forwarder interface {
	Forward(ctx context.Context, topic string, payload []byte, e *Event) error
	Close() error
}

// Bus is an in-process lifecycle event bus.
type Bus struct {
	pubsub     *gochannel.GoChannel
	serializer *Serializer
	logger     watermill.LoggerAdapter
	forwarder  Forwarder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus. When cfg.NATS.Enabled is set the NATS forwarder is
// connected as well; failing to connect is an error.
func NewBus(cfg Config) (*Bus, error) {
	logger := logging.NewWatermillAdapter(logging.WithComponent("eventbus"))
	b := newBus(cfg, logger)

	if cfg.NATS.Enabled {
		fwd, err := NewNATSForwarder(cfg.NATS, logger)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("create NATS forwarder: %w", err)
		}
		b.forwarder = fwd
	}
	return b, nil
}

// NewLocalBus creates a bus without any forwarder. It never fails.
func NewLocalBus(cfg Config) *Bus {
	return newBus(cfg, logging.NewWatermillAdapter(logging.WithComponent("eventbus")))
}

func newBus(cfg Config, logger watermill.LoggerAdapter) *Bus {
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = DefaultConfig().BufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            buffer,
			BlockPublishUntilSubscriberAck: cfg.Synchronous,
		}, logger),
		serializer: NewSerializer(),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetForwarder installs f, replacing any previous forwarder.
func (b *Bus) SetForwarder(f Forwarder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarder = f
}

// Publish sends e to the subscribers of its topic. Forwarding failures are
// logged and do not fail the publish.
func (b *Bus) Publish(ctx context.Context, e *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	payload, err := b.serializer.Marshal(e)
	if err != nil {
		metrics.RecordEventPublished(string(e.Type), err)
		return err
	}

	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set("type", string(e.Type))
	msg.Metadata.Set("server_id", e.ServerID)
	if e.EntityID != "" {
		msg.Metadata.Set("entity_id", e.EntityID)
	}

	err = b.pubsub.Publish(e.Topic(), msg)
	metrics.RecordEventPublished(string(e.Type), err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}

	if b.forwarder != nil {
		if err := b.forwarder.Forward(ctx, e.Topic(), payload, e); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("topic", e.Topic()).Msg("Event forwarding failed")
		}
	}
	return nil
}

// Subscribe registers h for events of type t. The returned function
// unsubscribes; it is safe to call more than once.
func (b *Bus) Subscribe(t EventType, h Handler) (func(), error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	ctx, cancel := context.WithCancel(b.ctx)
	messages, err := b.pubsub.Subscribe(ctx, t.Topic())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", t, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			b.deliver(ctx, msg, h)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// SubscribeAll registers h for every event type.
func (b *Bus) SubscribeAll(h Handler) (func(), error) {
	var cancels []func()
	for _, t := range EventTypes() {
		cancel, err := b.Subscribe(t, h)
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return nil, err
		}
		cancels = append(cancels, cancel)
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}, nil
}

// OnStarted registers h for batch start events.
func (b *Bus) OnStarted(h Handler) (func(), error) { return b.Subscribe(EventStarted, h) }

// OnProgress registers h for settled entity operations.
func (b *Bus) OnProgress(h Handler) (func(), error) { return b.Subscribe(EventProgress, h) }

// OnError registers h for failed entity operations.
func (b *Bus) OnError(h Handler) (func(), error) { return b.Subscribe(EventError, h) }

// OnComplete registers h for batch completion events.
func (b *Bus) OnComplete(h Handler) (func(), error) { return b.Subscribe(EventComplete, h) }

func (b *Bus) deliver(ctx context.Context, msg *message.Message, h Handler) {
	defer msg.Ack()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked", fmt.Errorf("%v", r), watermill.LogFields{
				"message_uuid": msg.UUID,
			})
		}
	}()

	e, err := b.serializer.Unmarshal(msg.Payload)
	if err != nil {
		b.logger.Error("Failed to decode event", err, watermill.LogFields{"message_uuid": msg.UUID})
		return
	}
	h(ctx, e)
}

// Close stops delivery, waits for handlers to return, and closes the
// forwarder. It is safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	fwd := b.forwarder
	b.mu.Unlock()

	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()

	if fwd != nil {
		if ferr := fwd.Close(); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}
