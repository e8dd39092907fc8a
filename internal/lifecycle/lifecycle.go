// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

// Package lifecycle runs the simulator from connect to clean disconnect.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/vgrigalashvili/entrance-simulator/internal/event"
	"github.com/vgrigalashvili/entrance-simulator/internal/scheduler"
	"github.com/vgrigalashvili/entrance-simulator/internal/sensor"
)

// ErrLoopPanic wraps a panic recovered from the publish loop.
var ErrLoopPanic = errors.New("lifecycle: publish loop panicked")

// Connection is the broker session the controller drives.
type Connection interface {
	scheduler.Publisher
	Connect(ctx context.Context) error
	Disconnect()
}

// Loop is the publish loop; *scheduler.Scheduler implements it.
type Loop interface {
	Run(ctx context.Context, sensors []sensor.Descriptor) error
}

// Controller wires connection and loop together.
type Controller struct {
	conn    Connection
	loop    Loop
	sensors []sensor.Descriptor
	sink    event.Sink
}

// New returns a Controller. A nil sink discards events.
func New(conn Connection, loop Loop, sensors []sensor.Descriptor, sink event.Sink) *Controller {
	if sink == nil {
		sink = event.Discard
	}
	return &Controller{conn: conn, loop: loop, sensors: sensors, sink: sink}
}

// Run connects, then runs the loop until ctx is cancelled. It returns
// the connect error when the broker is unreachable, nil on cancellation,
// and a wrapped error if the loop fails. Disconnect is called exactly
// once on every path.
func (c *Controller) Run(ctx context.Context) (err error) {
	defer c.conn.Disconnect()

	if err := c.conn.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		event.Stamp(c.sink, event.Event{Kind: event.ConnectFailed, Err: err})
		return err
	}

	event.Stamp(c.sink, event.Event{Kind: event.SimulationStarted})
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLoopPanic, r)
		}
		event.Stamp(c.sink, event.Event{Kind: event.SimulationStopped, Err: err})
	}()

	if err := c.loop.Run(ctx, c.sensors); err != nil && !isCancel(err) {
		return fmt.Errorf("publish loop: %w", err)
	}
	return nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
