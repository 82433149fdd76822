// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

//go:build nats

package eventprocessor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"
)

// NATSForwarder republishes bus events on NATS subjects.
type NATSForwarder struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
	prefix    string

	mu     sync.RWMutex
	closed bool
}

// NewNATSForwarder connects to cfg.URL.
func NewNATSForwarder(cfg NATSConfig, logger watermill.LoggerAdapter) (*NATSForwarder, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      !cfg.JetStream,
			AutoProvision: false,
			TrackMsgId:    cfg.JetStream,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill NATS publisher: %w", err)
	}

	return &NATSForwarder{
		publisher: pub,
		breaker:   NewCircuitBreaker(cfg.Breaker),
		prefix:    cfg.SubjectPrefix,
	}, nil
}

// Forward implements Forwarder.
func (f *NATSForwarder) Forward(_ context.Context, topic string, payload []byte, e *Event) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrBusClosed
	}

	subject := topic
	if f.prefix != "" {
		subject = f.prefix + "." + topic
	}
	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, e.ID)
	msg.Metadata.Set("type", string(e.Type))
	msg.Metadata.Set("server_id", e.ServerID)

	_, err := f.breaker.Execute(func() (any, error) {
		return nil, f.publisher.Publish(subject, msg)
	})
	return err
}

// Close implements Forwarder.
func (f *NATSForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.publisher.Close()
}

var _ Forwarder = (*NATSForwarder)(nil)
