// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

// Package scheduler drives the generate-and-publish cycle over the sensor
// fleet.
package scheduler

import (
	"context"
	"time"

	"github.com/vgrigalashvili/entrance-simulator/internal/event"
	"github.com/vgrigalashvili/entrance-simulator/internal/reading"
	"github.com/vgrigalashvili/entrance-simulator/internal/sensor"
)

// Publisher delivers a reading to a topic. connection.Manager implements it.
type Publisher interface {
	Publish(topic string, r reading.Reading) error
}

// Options controls topics and pacing.
type Options struct {
	TopicBase   string
	SensorDelay time.Duration
	CycleDelay  time.Duration
}

// DefaultOptions paces sensors half a second apart and cycles five
// seconds apart.
func DefaultOptions(topicBase string) Options {
	return Options{
		TopicBase:   topicBase,
		SensorDelay: 500 * time.Millisecond,
		CycleDelay:  5 * time.Second,
	}
}

// TopicFor returns the topic a sensor publishes on.
func TopicFor(base string, s sensor.Descriptor) string {
	return base + "/" + s.ID
}

// Scheduler runs the publish loop on the caller's goroutine.
type Scheduler struct {
	pub  Publisher
	gen  *reading.Generator
	sink event.Sink
	opts Options
	now  func() time.Time
}

// New returns a Scheduler. A nil sink discards events.
func New(pub Publisher, gen *reading.Generator, opts Options, sink event.Sink) *Scheduler {
	if sink == nil {
		sink = event.Discard
	}
	return &Scheduler{pub: pub, gen: gen, sink: sink, opts: opts, now: time.Now}
}

// Run publishes one reading per sensor per iteration, in order, until ctx
// is done, and returns ctx's error. Failures are reported as events and
// never end the loop. Cancellation is observed before each sensor and
// during every wait; a publish in progress always completes.
func (s *Scheduler) Run(ctx context.Context, sensors []sensor.Descriptor) error {
	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		event.Stamp(s.sink, event.Event{Kind: event.CycleStarted, Iteration: iteration})

		var stats event.Stats
		for _, sn := range sensors {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.step(iteration, sn, &stats)
			if err := wait(ctx, s.opts.SensorDelay); err != nil {
				return err
			}
		}

		event.Stamp(s.sink, event.Event{Kind: event.CycleCompleted, Iteration: iteration, Stats: stats})
		if err := wait(ctx, s.opts.CycleDelay); err != nil {
			return err
		}
	}
}

// step generates and publishes a single reading.
func (s *Scheduler) step(iteration int, sn sensor.Descriptor, stats *event.Stats) {
	topic := TopicFor(s.opts.TopicBase, sn)

	r, err := s.gen.Generate(sn, s.now())
	if err != nil {
		stats.Skipped++
		event.Stamp(s.sink, event.Event{Kind: event.SensorSkipped, Iteration: iteration, SensorID: sn.ID, Err: err})
		return
	}

	if err := s.pub.Publish(topic, r); err != nil {
		stats.Failed++
		event.Stamp(s.sink, event.Event{Kind: event.PublishFailed, Iteration: iteration, SensorID: sn.ID, Topic: topic, Err: err})
		return
	}

	stats.Published++
	event.Stamp(s.sink, event.Event{Kind: event.ReadingPublished, Iteration: iteration, SensorID: sn.ID, Topic: topic, Data: r.Data})
}

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
