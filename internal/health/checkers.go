// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"os"
	"time"

	"github.com/ManuGH/dvrtalk/internal/rpc"
	"github.com/ManuGH/dvrtalk/internal/transport"
)

// TransportState is the view of the duplex transport the checker needs.
type TransportState interface {
	State() transport.State
}

// TransportChecker reports unhealthy unless the transport is connected.
type TransportChecker struct {
	t TransportState
}

func NewTransportChecker(t TransportState) *TransportChecker {
	return &TransportChecker{t: t}
}

func (c *TransportChecker) Name() string { return "transport" }

func (c *TransportChecker) Check(context.Context) CheckResult {
	switch s := c.t.State(); s {
	case transport.StateConnected:
		return CheckResult{Status: StatusHealthy, Message: s.String()}
	case transport.StateConnecting:
		return CheckResult{Status: StatusDegraded, Message: s.String()}
	default:
		return CheckResult{Status: StatusUnhealthy, Message: s.String()}
	}
}

// PingFunc probes a backing service.
type PingFunc func(ctx context.Context) error

// PingChecker runs a probe with a timeout, e.g. the Redis bus PING.
type PingChecker struct {
	name    string
	ping    PingFunc
	timeout time.Duration
}

// NewPingChecker creates a probe checker. The timeout defaults to 2s.
func NewPingChecker(name string, ping PingFunc, timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PingChecker{name: name, ping: ping, timeout: timeout}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "ok in " + time.Since(start).Round(time.Millisecond).String()}
}

// BreakerChecker reports the DVR circuit breaker. An open breaker is
// degraded rather than unhealthy: the relay still answers with ERROR
// envelopes and recovers on its own.
type BreakerChecker struct {
	b *rpc.Breaker
}

func NewBreakerChecker(b *rpc.Breaker) *BreakerChecker {
	return &BreakerChecker{b: b}
}

func (c *BreakerChecker) Name() string { return "dvr_breaker" }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	s := c.b.State()
	if s == rpc.BreakerClosed {
		return CheckResult{Status: StatusHealthy, Message: string(s)}
	}
	return CheckResult{Status: StatusDegraded, Message: string(s)}
}

// FileChecker checks if a file exists and is readable
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

func (c *FileChecker) Name() string { return c.name }

func (c *FileChecker) Check(context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "file not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory"}
	}
	if info.Size() == 0 {
		return CheckResult{Status: StatusDegraded, Message: "file is empty"}
	}
	return CheckResult{Status: StatusHealthy, Message: "file exists and readable"}
}
