// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ManuGH/dvrtalk/internal/config"
	"github.com/ManuGH/dvrtalk/internal/daemon"
	"github.com/ManuGH/dvrtalk/internal/health"
	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/metrics"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server against the DVR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				metrics.IncConfigValidationError()
				return fmt.Errorf("load configuration: %w", err)
			}
			if cfg.Role != config.RoleServer {
				return fmt.Errorf("serve requires role %q, config has %q", config.RoleServer, cfg.Role)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("daemon")
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return err
	}

	app, err := daemon.Build(ctx, daemon.Deps{Logger: log.Base(), Config: cfg})
	if err != nil {
		return err
	}
	logger.Info().Str("event", "daemon.start").Str("version", cfg.Version).Msg("starting relay server")
	if err := app.Run(ctx); err != nil {
		return err
	}
	logger.Info().Str("event", "daemon.stop").Msg("relay server stopped")
	return nil
}
