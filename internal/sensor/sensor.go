// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

// Package sensor describes the simulated entrance sensor fleet.
package sensor

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind is the type of measurement a sensor produces.
type Kind string

const (
	KindMotion      Kind = "motion"
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
)

var (
	ErrEmptyFleet  = errors.New("sensor: fleet is empty")
	ErrDuplicateID = errors.New("sensor: duplicate sensor id")
	ErrMissingID   = errors.New("sensor: sensor id is required")
	ErrUnknownKind = errors.New("sensor: unknown sensor kind")
)

// Descriptor is the static description of one simulated device.
type Descriptor struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Kind     Kind   `yaml:"type"`
}

// Known reports whether k is one of the supported kinds.
func (k Kind) Known() bool {
	switch k {
	case KindMotion, KindTemperature, KindHumidity:
		return true
	}
	return false
}

// DefaultFleet returns the built-in entrance sensors for Building A.
func DefaultFleet() []Descriptor {
	return []Descriptor{
		{ID: "entrance_001", Name: "Main Entrance Sensor", Location: "Building A - Main Door", Kind: KindMotion},
		{ID: "entrance_002", Name: "Side Entrance Sensor", Location: "Building A - Side Door", Kind: KindMotion},
		{ID: "entrance_003", Name: "Temperature Sensor", Location: "Building A - Lobby", Kind: KindTemperature},
		{ID: "entrance_004", Name: "Humidity Sensor", Location: "Building A - Lobby", Kind: KindHumidity},
	}
}

type fleetFile struct {
	Sensors []Descriptor `yaml:"sensors"`
}

// LoadFleet reads a YAML sensor list from path. An empty path yields the
// default fleet.
func LoadFleet(path string) ([]Descriptor, error) {
	if path == "" {
		return DefaultFleet(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sensors file %s: %w", path, err)
	}

	var f fleetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sensors file %s: %w", path, err)
	}

	if err := Validate(f.Sensors); err != nil {
		return nil, err
	}
	return f.Sensors, nil
}

// Validate checks that the fleet is non-empty, ids are present and unique,
// and every kind is supported.
func Validate(fleet []Descriptor) error {
	if len(fleet) == 0 {
		return ErrEmptyFleet
	}

	seen := make(map[string]struct{}, len(fleet))
	for i, d := range fleet {
		if d.ID == "" {
			return fmt.Errorf("%w (entry %d)", ErrMissingID, i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = struct{}{}

		if !d.Kind.Known() {
			return fmt.Errorf("%w: %q for %s", ErrUnknownKind, d.Kind, d.ID)
		}
	}
	return nil
}
