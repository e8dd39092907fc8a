// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/vgrigalashvili/entrance-simulator/internal/event"
	"github.com/vgrigalashvili/entrance-simulator/internal/reading"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		out = append(out, m)
	}
	return out
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["message"] != "shown" {
		t.Errorf("lines = %v, want only the warn line", lines)
	}
	if _, ok := lines[0]["time"]; !ok {
		t.Error("log line has no timestamp")
	}
}

func TestNewWithWriter_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "loud")

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")

	if lines := decodeLines(t, &buf); len(lines) != 1 {
		t.Errorf("lines = %d, want 1", len(lines))
	}
}

func TestEventLogger_Levels(t *testing.T) {
	tests := []struct {
		ev        event.Event
		wantLevel string
	}{
		{event.Event{Kind: event.ConnectAttempt, Broker: "mosquitto:1883", Attempt: 1, MaxAttempts: 5}, "info"},
		{event.Event{Kind: event.ConnectAttemptFailed, Err: errors.New("timeout")}, "warn"},
		{event.Event{Kind: event.ConnectFailed, Err: errors.New("gave up")}, "error"},
		{event.Event{Kind: event.PublishFailed, SensorID: "entrance_001", Err: errors.New("not connected")}, "warn"},
		{event.Event{Kind: event.ReadingPublished, SensorID: "entrance_004", Data: reading.HumidityData{Humidity: 41.5, Unit: "percent"}}, "info"},
		{event.Event{Kind: event.SimulationStopped}, "info"},
		{event.Event{Kind: event.SimulationStopped, Err: errors.New("panic")}, "error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.ev.Kind)+"/"+tt.wantLevel, func(t *testing.T) {
			var buf bytes.Buffer
			NewEventLogger(NewWithWriter(&buf, "debug")).Emit(tt.ev)

			lines := decodeLines(t, &buf)
			if len(lines) != 1 {
				t.Fatalf("lines = %d, want 1", len(lines))
			}
			if got := lines[0]["level"]; got != tt.wantLevel {
				t.Errorf("level = %v, want %s", got, tt.wantLevel)
			}
		})
	}
}

func TestEventLogger_PublishedData(t *testing.T) {
	var buf bytes.Buffer
	NewEventLogger(NewWithWriter(&buf, "info")).Emit(event.Event{
		Kind:     event.ReadingPublished,
		SensorID: "entrance_001",
		Topic:    "entrance/sensors/entrance_001",
		Data:     reading.MotionData{MotionDetected: true, Count: 3},
	})

	lines := decodeLines(t, &buf)
	data, ok := lines[0]["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %v, want object", lines[0]["data"])
	}
	if data["motion_detected"] != true || data["count"] != float64(3) {
		t.Errorf("data = %v", data)
	}
	if lines[0]["sensor"] != "entrance_001" {
		t.Errorf("sensor = %v", lines[0]["sensor"])
	}
}
