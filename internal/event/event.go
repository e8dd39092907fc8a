// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

// Package event carries structured lifecycle and publish events from the
// simulator core to whoever reports them (logs, status cache).
package event

import "time"

// Kind classifies an event.
type Kind string

const (
	ConnectAttempt       Kind = "connect_attempt"
	ConnectAttemptFailed Kind = "connect_attempt_failed"
	ConnectRetry         Kind = "connect_retry"
	Connected            Kind = "connected"
	ConnectFailed        Kind = "connect_failed"
	ConnectionLost       Kind = "connection_lost"
	Disconnected         Kind = "disconnected"

	SimulationStarted Kind = "simulation_started"
	CycleStarted      Kind = "cycle_started"
	ReadingPublished  Kind = "reading_published"
	PublishFailed     Kind = "publish_failed"
	SensorSkipped     Kind = "sensor_skipped"
	CycleCompleted    Kind = "cycle_completed"
	SimulationStopped Kind = "simulation_stopped"
)

// Event is a single classified condition. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind Kind
	Time time.Time

	Broker      string
	Attempt     int
	MaxAttempts int
	Delay       time.Duration

	Iteration int
	SensorID  string
	Topic     string
	Data      any

	Stats Stats
	Err   error
}

// Stats counts outcomes within one cycle.
type Stats struct {
	Published int
	Failed    int
	Skipped   int
}

// Sink receives events. Implementations must be safe for concurrent use:
// transport notifications arrive on background goroutines.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Stamp sets e.Time to now when unset and forwards e to s.
func Stamp(s Sink, e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.Emit(e)
}
