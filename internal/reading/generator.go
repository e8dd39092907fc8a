// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

package reading

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vgrigalashvili/entrance-simulator/internal/sensor"
)

// Value ranges for the generated payloads.
const (
	motionOdds     = 4 // one in four draws detects motion
	maxMotionCount = 5

	minTemperature = 18.0
	maxTemperature = 26.0
	minHumidity    = 30.0
	maxHumidity    = 70.0

	unitCelsius = "celsius"
	unitPercent = "percent"
)

// Generator produces independent random readings. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator returns a Generator drawing from src. A nil src is seeded
// from the runtime's random source.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{rnd: rand.New(src)}
}

// Generate builds a reading for s stamped with now. It returns
// ErrUnsupportedKind for kinds it has no payload for.
func (g *Generator) Generate(s sensor.Descriptor, now time.Time) (Reading, error) {
	var data any

	g.mu.Lock()
	switch s.Kind {
	case sensor.KindMotion:
		detected := g.rnd.IntN(motionOdds) == 0
		count := 0
		if detected {
			count = g.rnd.IntN(maxMotionCount + 1)
		}
		data = MotionData{MotionDetected: detected, Count: count}
	case sensor.KindTemperature:
		data = TemperatureData{
			Temperature: g.uniform(minTemperature, maxTemperature),
			Unit:        unitCelsius,
		}
	case sensor.KindHumidity:
		data = HumidityData{
			Humidity: g.uniform(minHumidity, maxHumidity),
			Unit:     unitPercent,
		}
	}
	g.mu.Unlock()

	if data == nil {
		return Reading{}, fmt.Errorf("%w: %q (sensor %s)", ErrUnsupportedKind, s.Kind, s.ID)
	}

	return Reading{
		SensorID:   s.ID,
		SensorName: s.Name,
		Location:   s.Location,
		Type:       s.Kind,
		Timestamp:  FormatTimestamp(now),
		Data:       data,
	}, nil
}

// uniform draws from [lo, hi] and rounds to two decimal places.
// Caller must hold g.mu.
func (g *Generator) uniform(lo, hi float64) float64 {
	return round2(lo + g.rnd.Float64()*(hi-lo))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
