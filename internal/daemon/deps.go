// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net"

	"github.com/ManuGH/dvrtalk/internal/bus"
	"github.com/ManuGH/dvrtalk/internal/channels"
	"github.com/ManuGH/dvrtalk/internal/config"
	"github.com/ManuGH/dvrtalk/internal/health"
	"github.com/ManuGH/dvrtalk/internal/rpc"
	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon. Nil fields are built
// from Config.
type Deps struct {
	Logger zerolog.Logger
	Config config.AppConfig

	// Bus overrides the configured substrate. BusPing is its optional probe.
	Bus     bus.Bus
	BusPing health.PingFunc

	// Opener overrides the JSON gateway session opener. It is still wrapped
	// in the rate limiter and circuit breaker.
	Opener rpc.Opener

	// Fetch overrides the channel lineup download.
	Fetch channels.FetchFunc

	// Listener overrides Config.Ops.Listen for the ops server.
	Listener net.Listener
}
