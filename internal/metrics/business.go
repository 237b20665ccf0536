// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	channelTypes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dvrtalk_channel_types",
		Help: "Received channels in the loaded directory by type",
	}, []string{"type"}) // type=hd|sd

	channelDirectoryLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrtalk_channel_directory_loads_total",
		Help: "Channel directory loads by source and outcome",
	}, []string{"source", "outcome"}) // source=cache|download

	stationMatchScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dvrtalk_station_match_score",
		Help:    "Fuzzy match score of the station chosen for a spoken channel name",
		Buckets: []float64{50, 60, 70, 80, 90, 95, 100},
	})

	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dvrtalk_config_validation_errors_total",
		Help: "Total configuration validation errors at startup",
	})
)

// RecordChannelTypeCounts publishes the directory's HD/SD split.
func RecordChannelTypeCounts(hd, sd int) {
	channelTypes.WithLabelValues("hd").Set(float64(hd))
	channelTypes.WithLabelValues("sd").Set(float64(sd))
}

// IncChannelDirectoryLoad counts a directory load attempt.
func IncChannelDirectoryLoad(source string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	channelDirectoryLoads.WithLabelValues(source, outcome).Inc()
}

func ObserveStationMatch(score int) { stationMatchScore.Observe(float64(score)) }

func IncConfigValidationError() { configValidationErrors.Inc() }
