// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpc

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrRemote      = errors.New("rpc: remote returned an error response")
	ErrUnavailable = errors.New("rpc: device unreachable or transport failure")
	ErrBadResponse = errors.New("rpc: invalid response format or malformed data")
	ErrTimeout     = errors.New("rpc: request timed out")
	ErrClosed      = errors.New("rpc: session closed")
	ErrCircuitOpen = errors.New("rpc: circuit breaker is open")
	ErrRateLimited = errors.New("rpc: session rate limit exceeded")
)

// Error wraps a sentinel with the failing operation and whatever the remote
// side reported.
type Error struct {
	Sentinel error
	Op       string
	Type     string
	Code     string
	Text     string
	Status   int
	Err      error // lower-level cause, e.g. a net.Error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("rpc: %s: %v", e.Op, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Text != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Text)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// IsRemote reports whether err is an error response from the DVR rather than
// a transport failure.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemote)
}
