// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/dvrtalk/internal/query"
	"github.com/ManuGH/dvrtalk/internal/transport"
)

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Role:     RoleServer,
		LogLevel: "info",
		Bus: BusConfig{
			Inbound:  transport.DefaultInbound,
			Outbound: transport.DefaultOutbound,
		},
		Device: DeviceConfig{
			Timeout:          10 * time.Second,
			RateLimit:        5,
			Burst:            5,
			BreakerThreshold: 3,
			BreakerReset:     30 * time.Second,
		},
		Channels: ChannelsConfig{CacheFile: "channels.json"},
		Query: QueryConfig{
			PageSize: query.DefaultPageSize,
			HintMode: query.HintFirstOnly.String(),
		},
		Ops: OpsConfig{
			Listen:    ":9464",
			RateLimit: 120,
		},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
		Transport: TransportConfig{
			ConnectTimeout:  time.Second,
			PollInterval:    5 * time.Second,
			ResponseTimeout: 3 * time.Second,
		},
	}
}
