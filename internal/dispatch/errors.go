// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"errors"
	"fmt"

	"github.com/ManuGH/dvrtalk/internal/calendar"
	"github.com/ManuGH/dvrtalk/internal/channels"
	"github.com/ManuGH/dvrtalk/internal/rpc"
)

var (
	// ErrCommand marks a command the DVR refused or could not serve.
	ErrCommand = errors.New("dispatch: command failed")
	// ErrUnknownCommand is logged for commands without a handler.
	ErrUnknownCommand = errors.New("dispatch: unknown command")
	// ErrInvalidCommand marks a message missing required fields.
	ErrInvalidCommand = errors.New("dispatch: invalid command")
)

// commandError wraps remote failures in ErrCommand so callers can tell them
// apart from malformed requests.
func commandError(cmd string, err error) error {
	if err == nil {
		return nil
	}
	var rerr *rpc.Error
	if errors.As(err, &rerr) || errors.Is(err, rpc.ErrCircuitOpen) || errors.Is(err, rpc.ErrRateLimited) {
		return fmt.Errorf("%w: %s: %w", ErrCommand, cmd, err)
	}
	return err
}

// outcome classifies err for metrics and spans.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnknownCommand):
		return "unknown"
	case errors.Is(err, ErrInvalidCommand), errors.Is(err, calendar.ErrParse):
		return "invalid"
	case errors.Is(err, channels.ErrNoMatch):
		return "no_match"
	case rpc.IsRemote(err):
		return "remote_error"
	case errors.Is(err, rpc.ErrCircuitOpen), errors.Is(err, rpc.ErrRateLimited):
		return "rejected"
	default:
		return "error"
	}
}
