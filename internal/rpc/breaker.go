// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpc

import (
	"sync"
	"time"

	"github.com/ManuGH/dvrtalk/internal/metrics"
)

// BreakerState represents the circuit breaker state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// Breaker stops opening sessions after repeated transport failures.
type Breaker struct {
	mu           sync.Mutex
	name         string
	state        BreakerState
	failures     int
	threshold    int
	resetTimeout time.Duration
	openedAt     time.Time
	now          func() time.Time
}

// NewBreaker creates a closed breaker. Non-positive arguments fall back to
// 3 failures and 30 seconds.
func NewBreaker(name string, threshold int, resetTimeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	b := &Breaker{
		name:         name,
		state:        BreakerClosed,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
	metrics.SetBreakerState(name, string(b.state))
	return b
}

// Allow reports whether a request may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	default:
		if b.now().Sub(b.openedAt) > b.resetTimeout {
			b.transitionTo(BreakerHalfOpen)
			return true
		}
		return false
	}
}

// Failure records a failed request.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == BreakerHalfOpen {
		metrics.IncBreakerTrip(b.name, "half_open_failure")
		b.transitionTo(BreakerOpen)
		return
	}
	if b.state == BreakerClosed && b.failures >= b.threshold {
		metrics.IncBreakerTrip(b.name, "threshold_exceeded")
		b.transitionTo(BreakerOpen)
	}
}

// Success records a successful request and closes the circuit.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.transitionTo(BreakerClosed)
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Caller must hold mu.
func (b *Breaker) transitionTo(next BreakerState) {
	if b.state == next {
		return
	}
	b.state = next
	if next == BreakerOpen {
		b.openedAt = b.now()
	}
	metrics.SetBreakerState(b.name, string(next))
}
