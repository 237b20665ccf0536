// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ops serves the daemon's operational HTTP surface: Prometheus
// metrics, liveness and readiness.
package ops

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ManuGH/dvrtalk/internal/health"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig configures the ops router.
type RouterConfig struct {
	Health    *health.Manager
	Version   string
	Commands  []string
	RateLimit int // requests per minute per client IP; 0 disables
}

// NewRouter builds the ops router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(Metrics)
	if cfg.RateLimit > 0 {
		r.Use(RateLimit(cfg.RateLimit, time.Minute))
	}

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.ServeHealth)
		r.Get("/readyz", cfg.Health.ServeReady)
	}
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"version":  cfg.Version,
			"commands": cfg.Commands,
		})
	})
	return r
}
