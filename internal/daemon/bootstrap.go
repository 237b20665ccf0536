// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ManuGH/dvrtalk/internal/calendar"
	"github.com/ManuGH/dvrtalk/internal/channels"
	"github.com/ManuGH/dvrtalk/internal/config"
	"github.com/ManuGH/dvrtalk/internal/dispatch"
	"github.com/ManuGH/dvrtalk/internal/health"
	"github.com/ManuGH/dvrtalk/internal/ops"
	"github.com/ManuGH/dvrtalk/internal/query"
	"github.com/ManuGH/dvrtalk/internal/rpc"
	"github.com/ManuGH/dvrtalk/internal/rpc/httprpc"
	"github.com/ManuGH/dvrtalk/internal/telemetry"
	"github.com/ManuGH/dvrtalk/internal/transport"
	"golang.org/x/time/rate"
)

// Build wires the server role: bus, transport, guarded DVR sessions,
// channel directory, dispatcher and the ops listener. Resources acquired
// here are released by the returned App's shutdown hooks.
func Build(ctx context.Context, deps Deps) (_ *App, err error) {
	cfg := deps.Config
	if cfg.Role != config.RoleServer {
		return nil, fmt.Errorf("%w, got %q", ErrWrongRole, cfg.Role)
	}

	app := &App{
		logger: deps.Logger.With().Str("component", "daemon").Logger(),
		cfg:    cfg,
	}
	defer func() {
		if err != nil {
			_ = app.runHooks(context.WithoutCancel(ctx))
		}
	}()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dvrtalk",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	app.RegisterShutdownHook("telemetry", provider.Shutdown)

	b, busPing := deps.Bus, deps.BusPing
	if b == nil {
		h, err := OpenBus(ctx, cfg.Bus)
		if err != nil {
			return nil, err
		}
		app.RegisterShutdownHook("bus", func(context.Context) error { return h.Close() })
		b, busPing = h.Bus, h.Ping
	}

	// The relay server listens on the client's outbound topic.
	app.transport = transport.New(b, transport.Options{Inbound: cfg.Bus.Inbound, Outbound: cfg.Bus.Outbound})
	app.transport.SwapChannels()

	opener := deps.Opener
	if opener == nil {
		opener, err = httprpc.New(httprpc.Config{
			BaseURL: cfg.Device.GatewayURL,
			BodyID:  cfg.Device.BodyID,
			Token:   cfg.Device.Token,
			Timeout: cfg.Device.Timeout,
		})
		if err != nil {
			return nil, err
		}
	}
	guard := rpc.NewGuard(opener, rpc.GuardConfig{
		Rate:             rate.Limit(cfg.Device.RateLimit),
		Burst:            cfg.Device.Burst,
		BreakerThreshold: cfg.Device.BreakerThreshold,
		BreakerReset:     cfg.Device.BreakerReset,
	})

	hint, err := query.ParseHintMode(cfg.Query.HintMode)
	if err != nil {
		return nil, err
	}
	pager := query.Pager{PageSize: cfg.Query.PageSize, HintMode: hint}

	fetch := deps.Fetch
	if fetch == nil {
		fetch = channels.Downloader(guard, pager)
	}
	dir, err := channels.Load(ctx, cfg.Channels.CacheFile, fetch)
	if err != nil {
		return nil, fmt.Errorf("channel directory: %w", err)
	}

	app.dispatcher = dispatch.New(app.transport, guard, dir, dispatch.Options{
		Resolver:     calendar.Resolver{Location: cfg.Location(), Now: time.Now},
		Pager:        pager,
		PollInterval: cfg.Transport.PollInterval,
	})

	app.health = health.NewManager(cfg.Version)
	app.health.RegisterChecker(health.NewTransportChecker(app.transport))
	app.health.RegisterChecker(health.NewBreakerChecker(guard.Breaker()))
	app.health.RegisterChecker(health.NewFileChecker("channel_cache", cfg.Channels.CacheFile))
	if busPing != nil {
		app.health.RegisterChecker(health.NewPingChecker("redis", busPing, 0))
	}

	app.listener = deps.Listener
	if app.listener == nil && cfg.Ops.Listen != "" {
		var lc net.ListenConfig
		app.listener, err = lc.Listen(ctx, "tcp", cfg.Ops.Listen)
		if err != nil {
			return nil, fmt.Errorf("ops listener: %w", err)
		}
	}
	if app.listener != nil {
		ln := app.listener
		app.RegisterShutdownHook("ops-listener", func(context.Context) error {
			if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				return err
			}
			return nil
		})
		app.router = ops.NewRouter(ops.RouterConfig{
			Health:    app.health,
			Version:   cfg.Version,
			Commands:  app.dispatcher.Commands(),
			RateLimit: cfg.Ops.RateLimit,
		})
	}

	app.logger.Info().
		Int("channels", dir.Len()).
		Str("inbound", app.transport.Inbound()).
		Str("outbound", app.transport.Outbound()).
		Strs("commands", app.dispatcher.Commands()).
		Msg("daemon assembled")
	return app, nil
}
