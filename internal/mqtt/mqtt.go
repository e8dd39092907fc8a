// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

// Package mqtt is the paho-backed broker transport for the simulator.
package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/vgrigalashvili/entrance-simulator/internal/connection"
)

const (
	// QoS 1: the publish token completes on the broker's PUBACK.
	qos = 1

	keepAlive       = 60 * time.Second
	connectTimeout  = 10 * time.Second
	publishTimeout  = 10 * time.Second
	disconnectQuiet = 250 // milliseconds
)

var (
	ErrNotOpen        = errors.New("mqtt: transport not open")
	ErrPublishTimeout = errors.New("mqtt: publish not acknowledged in time")
)

// Config holds what the transport needs to reach the broker.
type Config struct {
	Host     string
	Port     int
	ClientID string
	Username string
	Password string
}

// BrokerURL returns the tcp:// URL for the configured host and port.
func (c Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// Transport opens a fresh paho client per connect attempt. Auto-reconnect
// is off: a lost session stays lost until the next explicit Open.
type Transport struct {
	cfg Config

	mu     sync.Mutex
	client mqtt.Client
	stop   chan struct{}
}

var _ connection.Transport = (*Transport)(nil)

// New returns an unopened Transport.
func New(cfg Config) *Transport {
	return &Transport{cfg: cfg}
}

func (t *Transport) Address() string {
	return fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)
}

// clientOptions builds paho options that report session changes to notify.
func (t *Transport) clientOptions(notify connection.NotifyFunc) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(t.cfg.BrokerURL()).
		SetClientID(t.cfg.ClientID).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false)

	// Credentials only when both are present.
	if t.cfg.Username != "" && t.cfg.Password != "" {
		opts.SetUsername(t.cfg.Username)
		opts.SetPassword(t.cfg.Password)
	}

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		notify(connection.Notification{Type: connection.SessionEstablished})
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		notify(connection.Notification{Type: connection.SessionLost, Err: err})
	})

	return opts
}

// Open starts a connect handshake. The outcome arrives through notify.
func (t *Transport) Open(notify connection.NotifyFunc) error {
	t.Close()

	client := mqtt.NewClient(t.clientOptions(notify))
	stop := make(chan struct{})

	t.mu.Lock()
	t.client = client
	t.stop = stop
	t.mu.Unlock()

	token := client.Connect()
	go func() {
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				notify(connection.Notification{Type: connection.SessionRefused, Err: err})
			}
		case <-stop:
		}
	}()

	return nil
}

// Publish sends payload with QoS 1 and waits for the broker's PUBACK.
func (t *Transport) Publish(topic string, payload []byte) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	if client == nil {
		return ErrNotOpen
	}

	token := client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s after %v", ErrPublishTimeout, topic, publishTimeout)
	}
	return token.Error()
}

// Close disconnects the current client, if any.
func (t *Transport) Close() {
	t.mu.Lock()
	client, stop := t.client, t.stop
	t.client, t.stop = nil, nil
	t.mu.Unlock()

	if client == nil {
		return
	}
	close(stop)
	client.Disconnect(disconnectQuiet)
}
