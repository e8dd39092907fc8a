// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

// Package reading generates synthetic sensor readings and defines their
// wire encoding.
package reading

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vgrigalashvili/entrance-simulator/internal/sensor"
)

// TimestampLayout is ISO-8601 UTC with microseconds and a literal Z.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

var (
	ErrUnsupportedKind = errors.New("reading: unsupported sensor kind")
	ErrMalformed       = errors.New("reading: malformed payload")
)

// Reading is one telemetry message as published to the broker.
// Field order matches the wire format.
type Reading struct {
	SensorID   string      `json:"sensor_id"`
	SensorName string      `json:"sensor_name"`
	Location   string      `json:"location"`
	Type       sensor.Kind `json:"type"`
	Timestamp  string      `json:"timestamp"`
	Data       any         `json:"data"`
}

// MotionData is the payload of a motion sensor.
type MotionData struct {
	MotionDetected bool `json:"motion_detected"`
	Count          int  `json:"count"`
}

// TemperatureData is the payload of a temperature sensor.
type TemperatureData struct {
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
}

// HumidityData is the payload of a humidity sensor.
type HumidityData struct {
	Humidity float64 `json:"humidity"`
	Unit     string  `json:"unit"`
}

// FormatTimestamp renders t in the wire timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Encode serializes r into its canonical JSON form.
func Encode(r Reading) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalJSON decodes the data object into the payload type matching
// the reading's type field.
func (r *Reading) UnmarshalJSON(b []byte) error {
	var raw struct {
		SensorID   string          `json:"sensor_id"`
		SensorName string          `json:"sensor_name"`
		Location   string          `json:"location"`
		Type       sensor.Kind     `json:"type"`
		Timestamp  string          `json:"timestamp"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var data any
	switch raw.Type {
	case sensor.KindMotion:
		var d MotionData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		data = d
	case sensor.KindTemperature:
		var d TemperatureData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		data = d
	case sensor.KindHumidity:
		var d HumidityData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		data = d
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, raw.Type)
	}

	*r = Reading{
		SensorID:   raw.SensorID,
		SensorName: raw.SensorName,
		Location:   raw.Location,
		Type:       raw.Type,
		Timestamp:  raw.Timestamp,
		Data:       data,
	}
	return nil
}
