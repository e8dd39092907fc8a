// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

package logger

import (
	"github.com/rs/zerolog"

	"github.com/vgrigalashvili/entrance-simulator/internal/event"
)

// EventLogger writes simulator events as log lines.
type EventLogger struct {
	log zerolog.Logger
}

// NewEventLogger returns a sink logging through l.
func NewEventLogger(l zerolog.Logger) *EventLogger {
	return &EventLogger{log: l}
}

func (el *EventLogger) Emit(e event.Event) {
	l := el.log
	switch e.Kind {
	case event.ConnectAttempt:
		l.Info().Str("broker", e.Broker).Int("attempt", e.Attempt).Int("max_attempts", e.MaxAttempts).
			Msg("Connecting to broker")
	case event.ConnectAttemptFailed:
		l.Warn().Err(e.Err).Str("broker", e.Broker).Int("attempt", e.Attempt).
			Msg("Connection attempt failed")
	case event.ConnectRetry:
		l.Info().Dur("retry_delay", e.Delay).Msg("Retrying connection")
	case event.Connected:
		l.Info().Str("broker", e.Broker).Int("attempt", e.Attempt).Msg("Connected to broker")
	case event.ConnectFailed:
		l.Error().Err(e.Err).Msg("Failed to connect to broker")
	case event.ConnectionLost:
		l.Warn().Err(e.Err).Str("broker", e.Broker).Msg("Connection to broker lost")
	case event.Disconnected:
		l.Info().Str("broker", e.Broker).Msg("Disconnected from broker")
	case event.SimulationStarted:
		l.Info().Msg("Simulation started")
	case event.CycleStarted:
		l.Debug().Int("iteration", e.Iteration).Msg("Iteration started")
	case event.ReadingPublished:
		l.Info().Int("iteration", e.Iteration).Str("sensor", e.SensorID).Str("topic", e.Topic).
			Interface("data", e.Data).Msg("Reading published")
	case event.PublishFailed:
		l.Warn().Err(e.Err).Int("iteration", e.Iteration).Str("sensor", e.SensorID).Str("topic", e.Topic).
			Msg("Publish failed")
	case event.SensorSkipped:
		l.Warn().Err(e.Err).Int("iteration", e.Iteration).Str("sensor", e.SensorID).Msg("Sensor skipped")
	case event.CycleCompleted:
		l.Info().Int("iteration", e.Iteration).Int("published", e.Stats.Published).
			Int("failed", e.Stats.Failed).Int("skipped", e.Stats.Skipped).Msg("Iteration completed")
	case event.SimulationStopped:
		if e.Err != nil {
			l.Error().Err(e.Err).Msg("Simulation stopped with error")
			return
		}
		l.Info().Msg("Simulation stopped")
	default:
		l.Debug().Str("kind", string(e.Kind)).Msg("Unhandled event")
	}
}
