// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dvrtalk_http_request_duration_seconds",
		Help:    "Ops listener request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dvrtalk_http_requests_in_flight",
		Help: "Current number of ops listener requests being served",
	})
)

// ObserveHTTPRequest records one served request. path must be a route pattern.
func ObserveHTTPRequest(method, path, status string, seconds float64) {
	httpRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

// HTTPInFlight adjusts the in-flight gauge by delta.
func HTTPInFlight(delta float64) { httpRequestsInFlight.Add(delta) }
