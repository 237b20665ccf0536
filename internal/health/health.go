// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health provides liveness and readiness checks for the relay
// daemon's ops listener.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/dvrtalk/internal/log"
	"golang.org/x/sync/errgroup"
)

// Status is the folded state of one or more components.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse reports whether s outranks o.
func (s Status) worse(o Status) bool {
	rank := func(x Status) int {
		switch x {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	return rank(s) > rank(o)
}

// CheckResult is one component's verdict.
type CheckResult struct {
	Status    Status  `json:"status"`
	Message   string  `json:"message,omitempty"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    int64                  `json:"uptime_seconds"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker probes one component of the relay.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager fans out registered checks and folds their results.
type Manager struct {
	version string
	started time.Time

	mu        sync.RWMutex
	checkers  []Checker
	lastReady *bool
}

func NewManager(version string) *Manager {
	return &Manager{version: version, started: time.Now()}
}

// RegisterChecker adds c; safe to call while the ops listener is serving.
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	m.checkers = append(m.checkers, c)
	m.mu.Unlock()
}

func (m *Manager) snapshot() []Checker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Checker(nil), m.checkers...)
}

// run executes every checker concurrently and folds their statuses.
func (m *Manager) run(ctx context.Context, checkers []Checker) (Status, map[string]CheckResult) {
	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			start := time.Now()
			r := c.Check(ctx)
			r.LatencyMS = float64(time.Since(start).Microseconds()) / 1000
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	status := StatusHealthy
	checks := make(map[string]CheckResult, len(checkers))
	for i, c := range checkers {
		checks[c.Name()] = results[i]
		if results[i].Status.worse(status) {
			status = results[i].Status
		}
	}
	return status, checks
}

// Health is the liveness view. The process is alive regardless of
// component state; verbose adds the component checks.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
		Uptime:    int64(time.Since(m.started).Seconds()),
	}
	if checkers := m.snapshot(); verbose && len(checkers) > 0 {
		resp.Status, resp.Checks = m.run(ctx, checkers)
	}
	return resp
}

// Ready is the readiness view. An unhealthy component makes the daemon not
// ready; degraded components do not.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{Ready: true, Status: StatusHealthy, Timestamp: time.Now()}
	if checkers := m.snapshot(); len(checkers) > 0 {
		resp.Status, resp.Checks = m.run(ctx, checkers)
		resp.Ready = resp.Status != StatusUnhealthy
	}
	m.noteTransition(ctx, resp)
	return resp
}

func (m *Manager) noteTransition(ctx context.Context, resp ReadinessResponse) {
	m.mu.Lock()
	changed := m.lastReady == nil || *m.lastReady != resp.Ready
	ready := resp.Ready
	m.lastReady = &ready
	m.mu.Unlock()
	if !changed {
		return
	}
	logger := log.WithComponentFromContext(ctx, "health")
	ev := logger.Info()
	if !resp.Ready {
		ev = logger.Warn()
	}
	ev.Str(log.FieldEvent, "readiness.changed").
		Bool("ready", resp.Ready).
		Str(log.FieldStatus, string(resp.Status)).
		Msg("readiness changed")
}

// ServeHealth always answers 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	writeJSON(r.Context(), w, http.StatusOK, m.Health(r.Context(), verbose))
}

// ServeReady answers 503 while the daemon is not ready.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(r.Context(), w, code, resp)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(ctx, "health")
		logger.Error().Err(err).Str(log.FieldEvent, "health.encode_error").Msg("failed to encode response")
	}
}
