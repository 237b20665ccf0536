// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/dvrtalk/internal/metrics"
	"golang.org/x/time/rate"
)

// GuardConfig configures session pacing and failure isolation.
type GuardConfig struct {
	Rate             rate.Limit // sessions per second; 0 disables limiting
	Burst            int
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Guard wraps an Opener with a rate limiter and a circuit breaker. Transport
// failures trip the breaker; error responses from the DVR do not.
type Guard struct {
	next    Opener
	limiter *rate.Limiter
	breaker *Breaker
}

// NewGuard wraps next.
func NewGuard(next Opener, cfg GuardConfig) *Guard {
	g := &Guard{
		next:    next,
		breaker: NewBreaker("rpc", cfg.BreakerThreshold, cfg.BreakerReset),
	}
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(cfg.Rate, burst)
	}
	return g
}

// Breaker exposes the guard's circuit breaker for health reporting.
func (g *Guard) Breaker() *Breaker { return g.breaker }

// Open admits a new session or rejects it with ErrRateLimited or ErrCircuitOpen.
func (g *Guard) Open(ctx context.Context) (Session, error) {
	if g.limiter != nil && !g.limiter.Allow() {
		metrics.IncSessionRejected("rate_limited")
		return nil, ErrRateLimited
	}
	if !g.breaker.Allow() {
		metrics.IncSessionRejected("circuit_open")
		return nil, ErrCircuitOpen
	}

	sess, err := g.next.Open(ctx)
	if err != nil {
		g.observe(err)
		return nil, err
	}
	return &guardedSession{Session: sess, guard: g}, nil
}

func (g *Guard) observe(err error) {
	switch {
	case errors.Is(err, context.Canceled):
	case err == nil, IsRemote(err):
		g.breaker.Success()
	default:
		g.breaker.Failure()
	}
}

type guardedSession struct {
	Session
	guard *Guard
}

func (s *guardedSession) SendRequest(ctx context.Context, reqType string, payload map[string]any) error {
	err := s.Session.SendRequest(ctx, reqType, payload)
	if err != nil {
		s.guard.observe(err)
	}
	return err
}

func (s *guardedSession) GetResponse(ctx context.Context) (Header, Body, error) {
	h, b, err := s.Session.GetResponse(ctx)
	s.guard.observe(err)
	return h, b, err
}

var _ Opener = (*Guard)(nil)
