// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

// Package redis keeps a short-lived simulator status document in Redis so
// operators can see whether the simulator is alive and publishing.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/vgrigalashvili/entrance-simulator/internal/event"
)

const writeTimeout = 2 * time.Second

// Init sets up a Redis client from a given address (e.g., "localhost:6379").
func Init(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

// StatusKey is the key holding the status of the simulator with clientID.
func StatusKey(clientID string) string {
	return fmt.Sprintf("simulator:%s:status", clientID)
}

// Status is the heartbeat document. Counters are cumulative for the run.
type Status struct {
	RunID     string `json:"run_id"`
	ClientID  string `json:"client_id"`
	State     string `json:"state"`
	Iteration int    `json:"iteration"`
	Published int    `json:"published"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	UpdatedAt string `json:"updated_at"`
}

// Heartbeat is an event.Sink that mirrors lifecycle events into Status
// and writes it to Redis with a TTL from a background goroutine.
type Heartbeat struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu      sync.Mutex
	status  Status
	closed  bool
	updates chan Status
	done    chan struct{}
}

// NewHeartbeat returns a Heartbeat; call Run in a goroutine and Close on
// shutdown.
func NewHeartbeat(client *redis.Client, clientID, runID string, ttl time.Duration) *Heartbeat {
	return &Heartbeat{
		client:  client,
		key:     StatusKey(clientID),
		ttl:     ttl,
		status:  Status{RunID: runID, ClientID: clientID, State: "starting"},
		updates: make(chan Status, 8),
		done:    make(chan struct{}),
	}
}

// Emit folds e into the status. Writes are dropped if Redis falls behind.
func (h *Heartbeat) Emit(e event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e.Kind {
	case event.Connected:
		h.status.State = "connected"
	case event.ConnectionLost:
		h.status.State = "connection_lost"
	case event.CycleCompleted:
		h.status.State = "running"
		h.status.Iteration = e.Iteration
		h.status.Published += e.Stats.Published
		h.status.Failed += e.Stats.Failed
		h.status.Skipped += e.Stats.Skipped
	case event.SimulationStopped:
		h.status.State = "stopped"
	default:
		return
	}
	h.status.UpdatedAt = e.Time.UTC().Format(time.RFC3339)

	if h.closed {
		return
	}
	select {
	case h.updates <- h.status:
	default:
	}
}

// Snapshot returns the current status.
func (h *Heartbeat) Snapshot() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Run writes queued updates until Close.
func (h *Heartbeat) Run() {
	defer close(h.done)
	for s := range h.updates {
		h.write(s)
	}
}

// Close stops Run and writes the final status once more.
func (h *Heartbeat) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.updates)
	h.mu.Unlock()

	<-h.done
	h.write(h.Snapshot())
}

func (h *Heartbeat) write(s Status) {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode heartbeat")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := h.client.Set(ctx, h.key, payload, h.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", h.key).Msg("Heartbeat write failed")
	}
}
