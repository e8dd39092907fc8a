// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vgrigalashvili/entrance-simulator/internal/connection"
	"github.com/vgrigalashvili/entrance-simulator/internal/event"
	"github.com/vgrigalashvili/entrance-simulator/internal/reading"
	"github.com/vgrigalashvili/entrance-simulator/internal/scheduler"
	"github.com/vgrigalashvili/entrance-simulator/internal/sensor"
)

type fakeConn struct {
	connectErr  error
	connects    atomic.Int32
	disconnects atomic.Int32
}

func (f *fakeConn) Connect(ctx context.Context) error {
	f.connects.Add(1)
	if f.connectErr != nil {
		return f.connectErr
	}
	return ctx.Err()
}

func (f *fakeConn) Publish(string, reading.Reading) error { return nil }
func (f *fakeConn) Disconnect()                           { f.disconnects.Add(1) }

type loopFunc func(ctx context.Context, sensors []sensor.Descriptor) error

func (l loopFunc) Run(ctx context.Context, sensors []sensor.Descriptor) error { return l(ctx, sensors) }

func TestRun_ConnectFailure(t *testing.T) {
	ce := &connection.ConnectError{Attempts: 5}
	conn := &fakeConn{connectErr: ce}
	rec := &event.Recorder{}
	ran := false
	loop := loopFunc(func(context.Context, []sensor.Descriptor) error {
		ran = true
		return nil
	})

	err := New(conn, loop, sensor.DefaultFleet(), rec).Run(context.Background())

	var got *connection.ConnectError
	if !errors.As(err, &got) || got.Attempts != 5 {
		t.Fatalf("Run() error = %v, want ConnectError", err)
	}
	if ran {
		t.Error("loop ran after connect failure")
	}
	if n := conn.disconnects.Load(); n != 1 {
		t.Errorf("disconnects = %d, want 1", n)
	}
	if rec.Count(event.ConnectFailed) != 1 {
		t.Errorf("connect_failed events = %d, want 1", rec.Count(event.ConnectFailed))
	}
}

func TestRun_CancelledWhileConnecting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := &fakeConn{}
	loop := loopFunc(func(context.Context, []sensor.Descriptor) error {
		t.Error("loop ran after cancellation")
		return nil
	})

	if err := New(conn, loop, nil, nil).Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if n := conn.disconnects.Load(); n != 1 {
		t.Errorf("disconnects = %d, want 1", n)
	}
}

func TestRun_CancelledLoop(t *testing.T) {
	conn := &fakeConn{}
	rec := &event.Recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	loop := loopFunc(func(ctx context.Context, _ []sensor.Descriptor) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	if err := New(conn, loop, sensor.DefaultFleet(), rec).Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if n := conn.disconnects.Load(); n != 1 {
		t.Errorf("disconnects = %d, want 1", n)
	}
	if rec.Count(event.SimulationStarted) != 1 || rec.Count(event.SimulationStopped) != 1 {
		t.Errorf("started/stopped events = %d/%d, want 1/1",
			rec.Count(event.SimulationStarted), rec.Count(event.SimulationStopped))
	}
}

func TestRun_LoopPanic(t *testing.T) {
	conn := &fakeConn{}
	loop := loopFunc(func(context.Context, []sensor.Descriptor) error {
		panic("boom")
	})

	err := New(conn, loop, sensor.DefaultFleet(), nil).Run(context.Background())
	if !errors.Is(err, ErrLoopPanic) {
		t.Errorf("Run() error = %v, want ErrLoopPanic", err)
	}
	if n := conn.disconnects.Load(); n != 1 {
		t.Errorf("disconnects = %d, want 1", n)
	}
}

func TestRun_LoopError(t *testing.T) {
	conn := &fakeConn{}
	boom := errors.New("generator exhausted")
	loop := loopFunc(func(context.Context, []sensor.Descriptor) error { return boom })

	err := New(conn, loop, sensor.DefaultFleet(), nil).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
	if n := conn.disconnects.Load(); n != 1 {
		t.Errorf("disconnects = %d, want 1", n)
	}
}

// ackTransport acknowledges every session and counts Close calls.
type ackTransport struct {
	mu     sync.Mutex
	sends  int
	closes int
}

func (a *ackTransport) Open(notify connection.NotifyFunc) error {
	go notify(connection.Notification{Type: connection.SessionEstablished})
	return nil
}

func (a *ackTransport) Publish(string, []byte) error {
	a.mu.Lock()
	a.sends++
	a.mu.Unlock()
	return nil
}

func (a *ackTransport) Close() {
	a.mu.Lock()
	a.closes++
	a.mu.Unlock()
}

func (a *ackTransport) Address() string { return "fake://broker" }

func (a *ackTransport) counts() (sends, closes int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sends, a.closes
}

func TestRun_EndToEndCancelMidCycle(t *testing.T) {
	tr := &ackTransport{}
	mgr := connection.New(tr, connection.Options{
		MaxAttempts:    5,
		RetryDelay:     10 * time.Millisecond,
		SessionTimeout: time.Second,
		PollInterval:   5 * time.Millisecond,
	}, nil)
	sched := scheduler.New(mgr, reading.NewGenerator(nil), scheduler.Options{
		TopicBase:   "entrance/sensors",
		SensorDelay: 30 * time.Millisecond,
		CycleDelay:  time.Second,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(mgr, sched, sensor.DefaultFleet(), nil).Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if sends, _ := tr.counts(); sends >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for publishes")
		}
		time.Sleep(2 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	sends, closes := tr.counts()
	if sends < 2 || sends >= 4 {
		t.Errorf("sends = %d, want the cycle to stop before completing", sends)
	}
	if closes != 1 {
		t.Errorf("transport closes = %d, want exactly 1", closes)
	}
	if mgr.State() != connection.Disconnected {
		t.Errorf("State() = %v, want disconnected", mgr.State())
	}
}
