// Copyright (c) 2025 Vladimer Grigalashvili
// SPDX-License-Identifier: MIT

package connection

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Publish when no session is established.
	ErrNotConnected = errors.New("connection: not connected")

	// ErrPublishFailed wraps transport-level publish failures.
	ErrPublishFailed = errors.New("connection: publish failed")

	// ErrSessionTimeout means the broker did not acknowledge in time.
	ErrSessionTimeout = errors.New("connection: session not established before timeout")

	// ErrSessionRefused means the transport reported a failed handshake
	// without a cause.
	ErrSessionRefused = errors.New("connection: session refused")
)

// ConnectError is returned by Connect once every attempt has failed.
type ConnectError struct {
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection: giving up after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("connection: giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
