// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ManuGH/dvrtalk/internal/query"
	"github.com/rs/zerolog"
)

// Validate checks the merged configuration. All failures are reported
// together and wrap ErrInvalidConfig.
func Validate(cfg AppConfig) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch cfg.Role {
	case RoleServer, RoleClient:
	default:
		fail("role: must be %q or %q, got %q", RoleServer, RoleClient, cfg.Role)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		fail("logLevel: %v", err)
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			fail("timezone: %v", err)
		}
	}

	if cfg.Bus.Inbound == "" || cfg.Bus.Outbound == "" {
		fail("bus: inbound and outbound topics must be set")
	} else if cfg.Bus.Inbound == cfg.Bus.Outbound {
		fail("bus: inbound and outbound topics must differ, both are %q", cfg.Bus.Inbound)
	}
	if cfg.Bus.RedisDB < 0 {
		fail("bus.redisDB: must be >= 0")
	}

	if cfg.Role == RoleServer {
		if cfg.Device.GatewayURL == "" {
			fail("device.gatewayURL: required for the server role")
		} else if u, err := url.Parse(cfg.Device.GatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			fail("device.gatewayURL: not an absolute URL: %q", cfg.Device.GatewayURL)
		}
		if cfg.Device.BodyID == "" {
			fail("device.bodyId: required for the server role")
		}
		if cfg.Channels.CacheFile == "" {
			fail("channels.cacheFile: required for the server role")
		}
	}
	if cfg.Device.Timeout <= 0 {
		fail("device.timeout: must be positive")
	}
	if cfg.Device.RateLimit <= 0 || cfg.Device.Burst <= 0 {
		fail("device: rateLimit and burst must be positive")
	}
	if cfg.Device.BreakerThreshold <= 0 || cfg.Device.BreakerReset <= 0 {
		fail("device: breakerThreshold and breakerReset must be positive")
	}

	if cfg.Query.PageSize <= 0 {
		fail("query.pageSize: must be positive")
	}
	if _, err := query.ParseHintMode(cfg.Query.HintMode); err != nil {
		fail("query.hintMode: %v", err)
	}

	if cfg.Ops.Listen != "" && cfg.Ops.RateLimit <= 0 {
		fail("ops.rateLimit: must be positive")
	}

	switch cfg.Telemetry.ExporterType {
	case "grpc", "http", "noop":
	default:
		fail("telemetry.exporterType: must be grpc, http or noop, got %q", cfg.Telemetry.ExporterType)
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		fail("telemetry.samplingRate: must be within [0, 1]")
	}

	if cfg.Transport.ConnectTimeout <= 0 || cfg.Transport.PollInterval <= 0 || cfg.Transport.ResponseTimeout <= 0 {
		fail("transport: timeouts must be positive")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
