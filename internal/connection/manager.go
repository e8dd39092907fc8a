// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

// Package connection owns the broker session: bounded-retry connect,
// state tracking from transport notifications, and guarded publishing.
package connection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vgrigalashvili/entrance-simulator/internal/event"
	"github.com/vgrigalashvili/entrance-simulator/internal/reading"
)

// State is the broker session state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Options bounds the connect phase.
type Options struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	SessionTimeout time.Duration
	PollInterval   time.Duration
}

// DefaultOptions allows five attempts, five seconds apart, each waiting up
// to ten seconds for the broker's acknowledgement.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:    5,
		RetryDelay:     5 * time.Second,
		SessionTimeout: 10 * time.Second,
		PollInterval:   500 * time.Millisecond,
	}
}

// Manager is the single owner of a Transport. Connect, Publish and
// Disconnect are called from one foreground goroutine; notifications
// arrive from the transport's own goroutines.
type Manager struct {
	transport Transport
	opts      Options
	sink      event.Sink

	state atomic.Int32

	// mu serializes state writes with gen so a notification from a
	// closed attempt cannot overwrite a newer state.
	mu      sync.Mutex
	gen     uint64
	refusal error
}

// New returns a disconnected Manager. A nil sink discards events.
func New(t Transport, opts Options, sink event.Sink) *Manager {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if sink == nil {
		sink = event.Discard
	}
	return &Manager{transport: t, opts: opts, sink: sink}
}

// State returns the current session state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// IsConnected reports whether a session is established.
func (m *Manager) IsConnected() bool {
	return m.State() == Connected
}

// Connect tries to establish a session, up to Options.MaxAttempts times
// with Options.RetryDelay between attempts. It returns *ConnectError when
// every attempt fails, or the context error if ctx ends first.
func (m *Manager) Connect(ctx context.Context) error {
	var lastErr error
	broker := m.transport.Address()

	for attempt := 1; attempt <= m.opts.MaxAttempts; attempt++ {
		event.Stamp(m.sink, event.Event{
			Kind:        event.ConnectAttempt,
			Broker:      broker,
			Attempt:     attempt,
			MaxAttempts: m.opts.MaxAttempts,
		})

		err := m.attempt(ctx)
		if err == nil {
			event.Stamp(m.sink, event.Event{Kind: event.Connected, Broker: broker, Attempt: attempt})
			return nil
		}

		m.reset()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		event.Stamp(m.sink, event.Event{
			Kind:        event.ConnectAttemptFailed,
			Broker:      broker,
			Attempt:     attempt,
			MaxAttempts: m.opts.MaxAttempts,
			Err:         err,
		})

		if attempt < m.opts.MaxAttempts {
			event.Stamp(m.sink, event.Event{Kind: event.ConnectRetry, Attempt: attempt, Delay: m.opts.RetryDelay})
			if err := wait(ctx, m.opts.RetryDelay); err != nil {
				return err
			}
		}
	}

	return &ConnectError{Attempts: m.opts.MaxAttempts, Err: lastErr}
}

func (m *Manager) attempt(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.refusal = nil
	m.state.Store(int32(Connecting))
	m.mu.Unlock()

	if err := m.transport.Open(func(n Notification) { m.handle(gen, n) }); err != nil {
		return err
	}
	return m.awaitSession(ctx)
}

// awaitSession polls the state until the session is up, refused, or the
// timeout passes.
func (m *Manager) awaitSession(ctx context.Context) error {
	deadline := time.NewTimer(m.opts.SessionTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(m.opts.PollInterval)
	defer tick.Stop()

	for {
		switch m.State() {
		case Connected:
			return nil
		case Disconnected:
			return m.refusalErr()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if m.IsConnected() {
				return nil
			}
			return fmt.Errorf("%w (%v)", ErrSessionTimeout, m.opts.SessionTimeout)
		case <-tick.C:
		}
	}
}

func (m *Manager) refusalErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refusal != nil {
		return m.refusal
	}
	return ErrSessionRefused
}

// handle applies a notification from the attempt numbered gen.
func (m *Manager) handle(gen uint64, n Notification) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}

	prev := State(m.state.Load())
	switch n.Type {
	case SessionEstablished:
		m.state.Store(int32(Connected))
	case SessionRefused:
		m.state.Store(int32(Disconnected))
		m.refusal = n.Err
	case SessionLost:
		m.state.Store(int32(Disconnected))
	}
	m.mu.Unlock()

	if n.Type == SessionLost && prev == Connected {
		event.Stamp(m.sink, event.Event{Kind: event.ConnectionLost, Broker: m.transport.Address(), Err: n.Err})
	}
}

// reset abandons the current attempt.
func (m *Manager) reset() {
	m.mu.Lock()
	m.gen++
	m.state.Store(int32(Disconnected))
	m.mu.Unlock()

	m.transport.Close()
}

// Publish encodes r and sends it to topic. It fails with ErrNotConnected
// without touching the transport unless a session is established.
func (m *Manager) Publish(topic string, r reading.Reading) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}

	payload, err := reading.Encode(r)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPublishFailed, err)
	}

	if err := m.transport.Publish(topic, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Disconnect stops the transport and marks the session closed. It is
// safe to call in any state and more than once.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	prev := State(m.state.Swap(int32(Disconnected)))
	m.mu.Unlock()

	m.transport.Close()

	if prev == Connected {
		event.Stamp(m.sink, event.Event{Kind: event.Disconnected, Broker: m.transport.Address()})
	}
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
