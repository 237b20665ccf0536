// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ManuGH/dvrtalk/internal/channels"
	"github.com/ManuGH/dvrtalk/internal/query"
	"github.com/ManuGH/dvrtalk/internal/rpc/httprpc"
	"github.com/spf13/cobra"
)

func newChannelsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Inspect or refresh the cached channel lineup",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the received channels from the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			lineup, err := channels.ReadFile(cfg.Channels.CacheFile)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NUMBER\tNAME\tSTATION\tHD")
			for _, ch := range channels.NewDirectory(lineup).All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", ch.Number, ch.Name, ch.StationID, ch.IsHD)
			}
			return w.Flush()
		},
	}

	match := &cobra.Command{
		Use:   "match NAME [NUMBER]",
		Short: "Show which station a spoken channel name resolves to",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			lineup, err := channels.ReadFile(cfg.Channels.CacheFile)
			if err != nil {
				return err
			}
			number := ""
			if len(args) == 2 {
				number = args[1]
			}
			ch, score, err := channels.NewDirectory(lineup).MatchStation(args[0], number)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s) score=%d\n", ch.Number, ch.Name, ch.StationID, score)
			return err
		},
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Download the lineup from the DVR and rewrite the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			opener, err := httprpc.New(httprpc.Config{
				BaseURL: cfg.Device.GatewayURL,
				BodyID:  cfg.Device.BodyID,
				Token:   cfg.Device.Token,
				Timeout: cfg.Device.Timeout,
			})
			if err != nil {
				return err
			}
			hint, err := query.ParseHintMode(cfg.Query.HintMode)
			if err != nil {
				return err
			}
			lineup, err := channels.Downloader(opener, query.Pager{PageSize: cfg.Query.PageSize, HintMode: hint})(cmd.Context())
			if err != nil {
				return err
			}
			if err := channels.WriteFile(cmd.Context(), cfg.Channels.CacheFile, lineup); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d channels (%d received) to %s\n",
				len(lineup), channels.NewDirectory(lineup).Len(), cfg.Channels.CacheFile)
			return err
		},
	}

	cmd.AddCommand(list, match, refresh)
	return cmd
}
