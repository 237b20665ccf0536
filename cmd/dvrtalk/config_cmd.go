// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate or print the effective configuration",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := opts.load(cmd); err != nil {
				return err
			}
			src := opts.configPath
			if src == "" {
				src = "environment and defaults"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "configuration from %s is valid\n", src)
			return err
		},
	}

	var format string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration (defaults + file + env) with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(redacted); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(redacted)
			default:
				return fmt.Errorf("unsupported format %q (yaml or json)", format)
			}
		},
	}
	dump.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")

	cmd.AddCommand(validate, dump)
	return cmd
}
