// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

// Package rabbitmq is the AMQP broker transport: readings go to a durable
// topic exchange with publisher confirms.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/vgrigalashvili/entrance-simulator/internal/connection"
)

const (
	exchangeKind   = "topic"
	heartbeat      = 10 * time.Second
	publishTimeout = 10 * time.Second
)

var (
	ErrNotOpen = errors.New("rabbitmq: transport not open")
	ErrNacked  = errors.New("rabbitmq: broker rejected message")
)

// Config holds the AMQP endpoint and exchange name.
type Config struct {
	URL      string
	Exchange string
	Username string
	Password string
}

// confirmChannel is the part of *amqp091.Channel used for publishing.
type confirmChannel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) (*amqp091.DeferredConfirmation, error)
}

// Transport keeps one connection and confirm-mode channel per Open.
type Transport struct {
	cfg Config

	mu   sync.Mutex
	conn *amqp091.Connection
	ch   confirmChannel
	stop chan struct{}
}

var _ connection.Transport = (*Transport)(nil)

// New returns an unopened Transport.
func New(cfg Config) *Transport {
	return &Transport{cfg: cfg}
}

// Address returns host:port/vhost without credentials.
func (t *Transport) Address() string {
	uri, err := amqp091.ParseURI(t.cfg.URL)
	if err != nil {
		return "invalid amqp url"
	}
	return fmt.Sprintf("%s:%d/%s", uri.Host, uri.Port, strings.TrimPrefix(uri.Vhost, "/"))
}

// RoutingKey maps a slash-separated topic onto AMQP's dotted form.
func RoutingKey(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

func (t *Transport) dialConfig() amqp091.Config {
	cfg := amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
	}
	// Explicit credentials override the URL's only when both are present.
	if t.cfg.Username != "" && t.cfg.Password != "" {
		cfg.SASL = []amqp091.Authentication{&amqp091.PlainAuth{
			Username: t.cfg.Username,
			Password: t.cfg.Password,
		}}
	}
	return cfg
}

// Open dials the broker, declares the exchange and enables confirms. The
// AMQP handshake is synchronous, so success is notified before returning.
func (t *Transport) Open(notify connection.NotifyFunc) error {
	t.Close()

	conn, err := amqp091.DialConfig(t.cfg.URL, t.dialConfig())
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(t.cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq declare exchange %s: %w", t.cfg.Exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq confirm mode: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp091.Error, 1))
	stop := make(chan struct{})

	t.mu.Lock()
	t.conn, t.ch, t.stop = conn, ch, stop
	t.mu.Unlock()

	go func() {
		select {
		case amqpErr := <-closed:
			var err error
			if amqpErr != nil {
				err = amqpErr
			}
			notify(connection.Notification{Type: connection.SessionLost, Err: err})
		case <-stop:
		}
	}()

	notify(connection.Notification{Type: connection.SessionEstablished})
	return nil
}

// Publish sends a persistent message and waits for the broker's confirm.
func (t *Transport) Publish(topic string, payload []byte) error {
	t.mu.Lock()
	ch := t.ch
	t.mu.Unlock()

	if ch == nil {
		return ErrNotOpen
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, t.cfg.Exchange, RoutingKey(topic), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", topic, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq confirm %s: %w", topic, err)
	}
	if !acked {
		return fmt.Errorf("%w: %s", ErrNacked, topic)
	}
	return nil
}

// Close shuts the connection down, if open.
func (t *Transport) Close() {
	t.mu.Lock()
	conn, stop := t.conn, t.stop
	t.conn, t.ch, t.stop = nil, nil, nil
	t.mu.Unlock()

	if conn == nil {
		return
	}
	close(stop)
	_ = conn.Close()
}
