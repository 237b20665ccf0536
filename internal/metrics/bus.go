// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_bus_published_total",
		Help: "Total number of messages published on the pub/sub substrate by backend",
	}, []string{"backend"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_bus_dropped_total",
		Help: "Total number of substrate message drops by topic and reason",
	}, []string{"topic", "reason"})
)

// IncBusPublished records a message handed to the substrate.
func IncBusPublished(backend string) {
	if backend == "" {
		backend = "unknown"
	}
	BusPublishedTotal.WithLabelValues(backend).Inc()
}

// IncBusDropReason records a dropped bus message with a concrete reason.
func IncBusDropReason(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}
