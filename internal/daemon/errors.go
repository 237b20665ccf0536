// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrWrongRole is returned when a server is built from a client config.
	ErrWrongRole = errors.New("daemon requires the server role")

	// ErrNotAcknowledged is returned when the bus never confirms the subscription.
	ErrNotAcknowledged = errors.New("transport subscription not acknowledged")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("daemon already running")
)
