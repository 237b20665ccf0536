// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transport metrics
	TransportConnected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dvrtalk_transport_connected",
		Help: "Whether the duplex transport for an inbound topic is connected (1) or not (0)",
	}, []string{"inbound"})

	TransportMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_transport_messages_total",
		Help: "Messages moved through the duplex transport by direction",
	}, []string{"direction"}) // direction=in|out|stop

	TransportDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_transport_dropped_total",
		Help: "Inbound payloads dropped by the duplex transport",
	}, []string{"reason"}) // reason=decode

	// Dispatcher metrics
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_commands_total",
		Help: "Commands processed by the dispatcher by outcome",
	}, []string{"cmd", "outcome"}) // outcome=success|error|unknown|invalid

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dvrtalk_command_duration_seconds",
		Help:    "Duration of command handlers",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"cmd"})
)

// SetTransportConnected records the connectivity flag of a transport.
func SetTransportConnected(inbound string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	TransportConnected.WithLabelValues(inbound).Set(v)
}

// IncTransportMessage counts a message in the given direction.
func IncTransportMessage(direction string) {
	TransportMessagesTotal.WithLabelValues(direction).Inc()
}

// IncTransportDropped counts an inbound payload the transport could not deliver.
func IncTransportDropped(reason string) {
	TransportDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordCommand records the outcome and duration of one dispatched command.
func RecordCommand(cmd, outcome string, d time.Duration) {
	if cmd == "" {
		cmd = "unknown"
	}
	CommandsTotal.WithLabelValues(cmd, outcome).Inc()
	if d > 0 {
		commandDuration.WithLabelValues(cmd).Observe(d.Seconds())
	}
}
