// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command dvrtalk relays voice-assistant commands to a TiVo-style DVR over
// a Redis pub/sub bus.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/dvrtalk/internal/config"
	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/version"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "dvrtalk",
		Short:         "Relay voice commands to a DVR over a pub/sub bus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			log.Configure(log.Config{
				Level:   opts.logLevel,
				Output:  cmd.ErrOrStderr(),
				Service: "dvrtalk",
				Version: version.Version,
			})
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (YAML)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level before the config is loaded")

	root.AddCommand(
		newServeCmd(opts),
		newSendCmd(opts),
		newChannelsCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and reconfigures logging from it.
func (o *rootOptions) load(cmd *cobra.Command) (config.AppConfig, error) {
	path := strings.TrimSpace(o.configPath)
	if path == "" {
		path = config.ParseString(config.EnvConfigPath, "")
	}
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, err
	}
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Output:  cmd.ErrOrStderr(),
		Service: "dvrtalk",
		Version: cfg.Version,
	})
	if unused := loader.UnusedEnvKeys(); len(unused) > 0 {
		logger := log.WithComponent("config")
		logger.Warn().Strs("keys", unused).Msg("ignoring unknown environment variables")
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
