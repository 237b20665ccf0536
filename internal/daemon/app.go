// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon assembles and runs the relay server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/dvrtalk/internal/config"
	"github.com/ManuGH/dvrtalk/internal/dispatch"
	"github.com/ManuGH/dvrtalk/internal/health"
	"github.com/ManuGH/dvrtalk/internal/ops"
	"github.com/ManuGH/dvrtalk/internal/transport"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// App owns the server runtime: the transport, the dispatcher loop and the
// ops listener.
type App struct {
	logger zerolog.Logger
	cfg    config.AppConfig

	transport  *transport.Duplex
	dispatcher *dispatch.Dispatcher
	health     *health.Manager
	listener   net.Listener
	router     http.Handler

	mu      sync.Mutex
	started bool
	hooks   []namedHook
}

// Health exposes the health manager.
func (a *App) Health() *health.Manager { return a.health }

// Transport exposes the server transport.
func (a *App) Transport() *transport.Duplex { return a.transport }

// Addr returns the ops listener address, or nil when it is disabled.
func (a *App) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
func (a *App) RegisterShutdownHook(name string, hook ShutdownHook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, namedHook{name: name, hook: hook})
}

// Run connects the transport and serves commands until ctx is cancelled or
// a component fails. It always disconnects and runs the shutdown hooks.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.started = true
	a.mu.Unlock()

	runErr := a.serve(ctx, a.cfg.Transport.ConnectTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.disconnect(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if err := a.runHooks(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

func (a *App) serve(ctx context.Context, connectTimeout time.Duration) error {
	if err := a.transport.Connect(ctx); err != nil {
		return err
	}
	if !a.transport.WaitConnected(ctx, connectTimeout) {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w on %s within %s", ErrNotAcknowledged, a.transport.Inbound(), connectTimeout)
	}
	a.logger.Info().Str("inbound", a.transport.Inbound()).Msg("relay server connected")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.dispatcher.Run(gctx) })
	if a.listener != nil {
		g.Go(func() error { return ops.Serve(gctx, a.listener, a.router) })
	}
	return g.Wait()
}

// disconnect sends the STOP sentinel and waits for the listener to exit.
// A transport that never connected, or a sentinel that does not come back,
// is torn down locally.
func (a *App) disconnect(ctx context.Context) error {
	done := a.transport.Done()
	if done == nil {
		return nil
	}
	if !a.transport.Connected() {
		_ = a.transport.Close()
		<-done
		return nil
	}
	if err := a.transport.Disconnect(ctx); err != nil && !errors.Is(err, transport.ErrNotConnected) {
		a.logger.Warn().Err(err).Msg("stop sentinel not sent, closing locally")
		_ = a.transport.Close()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		_ = a.transport.Close()
		<-done
		return fmt.Errorf("disconnect transport: %w", ctx.Err())
	}
}

// runHooks executes and clears the shutdown hooks in LIFO order.
func (a *App) runHooks(ctx context.Context) error {
	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.hook(ctx); err != nil {
			a.logger.Error().Err(err).Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		a.logger.Debug().Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook completed")
	}
	return errors.Join(errs...)
}
