// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the DVR remote procedure service and the guard in front of it.
var (
	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_rpc_requests_total",
		Help: "Requests sent to the DVR remote procedure service by type and outcome",
	}, []string{"type", "outcome"}) // outcome=success|error

	PagerPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_pager_pages_total",
		Help: "Result pages fetched by the query pager per request type",
	}, []string{"type"})

	pagerItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dvrtalk_pager_items",
		Help:    "Items accumulated per paged query",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 250, 500},
	}, []string{"type"})

	SessionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_rpc_sessions_rejected_total",
		Help: "Remote sessions rejected before opening by reason",
	}, []string{"reason"}) // reason=circuit_open|rate_limited

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dvrtalk_rpc_breaker_state",
		Help: "Current state of the DVR session breaker (1 for the active state)",
	}, []string{"breaker", "state"})

	BreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_rpc_breaker_trips_total",
		Help: "Transitions of the DVR session breaker into the open state",
	}, []string{"breaker", "reason"})
)

var breakerStates = [...]string{"closed", "half-open", "open"}

// IncRPCRequest counts a remote request by type and outcome.
func IncRPCRequest(reqType, outcome string) {
	RPCRequestsTotal.WithLabelValues(reqType, outcome).Inc()
}

// RecordPagedQuery records the pages and items of one paged query.
func RecordPagedQuery(reqType string, pages, items int) {
	PagerPagesTotal.WithLabelValues(reqType).Add(float64(pages))
	pagerItems.WithLabelValues(reqType).Observe(float64(items))
}

// IncSessionRejected counts a session refused by the guard.
func IncSessionRejected(reason string) {
	SessionsRejectedTotal.WithLabelValues(reason).Inc()
}

// SetBreakerState marks state as the only active state of the named breaker.
func SetBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		g := breakerState.WithLabelValues(breaker, s)
		if s == state {
			g.Set(1)
		} else {
			g.Set(0)
		}
	}
}

// IncBreakerTrip counts a transition into the open state.
func IncBreakerTrip(breaker, reason string) {
	BreakerTripsTotal.WithLabelValues(breaker, reason).Inc()
}
