// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestRecordCommandIncrementsCounter(t *testing.T) {
	before := counterValue(t, CommandsTotal.WithLabelValues("pause", "success"))
	RecordCommand("pause", "success", 15*time.Millisecond)
	after := counterValue(t, CommandsTotal.WithLabelValues("pause", "success"))
	require.Equal(t, before+1, after)
}

func TestRecordCommandDefaultsEmptyName(t *testing.T) {
	before := counterValue(t, CommandsTotal.WithLabelValues("unknown", "invalid"))
	RecordCommand("", "invalid", 0)
	require.Equal(t, before+1, counterValue(t, CommandsTotal.WithLabelValues("unknown", "invalid")))
}

func TestSetTransportConnected(t *testing.T) {
	SetTransportConnected("C_QUERY", true)
	require.Equal(t, 1.0, gaugeValue(t, TransportConnected.WithLabelValues("C_QUERY")))
	SetTransportConnected("C_QUERY", false)
	require.Equal(t, 0.0, gaugeValue(t, TransportConnected.WithLabelValues("C_QUERY")))
}

func TestSetBreakerStateIsExclusive(t *testing.T) {
	SetBreakerState("rpc", "open")
	require.Equal(t, 1.0, gaugeValue(t, breakerState.WithLabelValues("rpc", "open")))
	require.Equal(t, 0.0, gaugeValue(t, breakerState.WithLabelValues("rpc", "closed")))
	require.Equal(t, 0.0, gaugeValue(t, breakerState.WithLabelValues("rpc", "half-open")))
}

func TestPagedQueryExposed(t *testing.T) {
	RecordPagedQuery("recordingSearch", 4, 45)

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.True(t, strings.Contains(rec.Body.String(), `dvrtalk_pager_pages_total{type="recordingSearch"}`))
}
