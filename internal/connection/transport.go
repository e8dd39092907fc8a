// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

package connection

// NotificationType is an asynchronous session event reported by a transport.
type NotificationType int

const (
	// SessionEstablished means the broker acknowledged the session.
	SessionEstablished NotificationType = iota
	// SessionRefused means the connect handshake failed.
	SessionRefused
	// SessionLost means an established session dropped.
	SessionLost
)

func (t NotificationType) String() string {
	switch t {
	case SessionEstablished:
		return "established"
	case SessionRefused:
		return "refused"
	case SessionLost:
		return "lost"
	}
	return "unknown"
}

// Notification is delivered by a transport's background goroutine.
type Notification struct {
	Type NotificationType
	Err  error
}

// NotifyFunc receives transport notifications. It may be called from any
// goroutine and must not block.
type NotifyFunc func(Notification)

// Transport is the broker client the Manager drives. A Transport may be
// opened again after Close.
type Transport interface {
	// Open starts connecting and returns without waiting for the broker's
	// acknowledgement, which is reported through notify.
	Open(notify NotifyFunc) error
	// Publish sends payload and blocks until the broker acknowledges it
	// or the send fails.
	Publish(topic string, payload []byte) error
	// Close stops background processing and releases the connection.
	// Safe to call when not open.
	Close()
	// Address identifies the broker for reporting.
	Address() string
}
