// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

import "errors"

var (
	// ErrNotConnected is returned by Publish and WaitForMessage while the
	// connectivity flag is false.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrTimeout is returned by WaitForMessage when no message arrived in time.
	ErrTimeout = errors.New("transport: timed out waiting for message")
)
