// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"

	"github.com/ManuGH/dvrtalk/internal/bus"
	"github.com/ManuGH/dvrtalk/internal/config"
	"github.com/ManuGH/dvrtalk/internal/health"
	"github.com/ManuGH/dvrtalk/internal/log"
)

// BusHandle is an opened bus with its lifecycle hooks.
type BusHandle struct {
	Bus   bus.Bus
	Close func() error
	// Ping is nil for the in-process bus.
	Ping health.PingFunc
}

// OpenBus connects to Redis when an address is configured, otherwise it
// returns an in-process bus that only reaches peers in the same process.
func OpenBus(ctx context.Context, cfg config.BusConfig) (BusHandle, error) {
	logger := log.WithComponent("bus")
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("no redis address configured, using in-process bus")
		return BusHandle{Bus: bus.NewMemoryBus(), Close: func() error { return nil }}, nil
	}

	client, err := bus.DialRedis(ctx, bus.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return BusHandle{}, fmt.Errorf("open redis bus: %w", err)
	}
	rb := bus.NewRedisBus(client)
	logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("connected to redis bus")
	return BusHandle{Bus: rb, Close: client.Close, Ping: rb.Ping}, nil
}
