// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ManuGH/dvrtalk/internal/client"
	"github.com/ManuGH/dvrtalk/internal/config"
	"github.com/ManuGH/dvrtalk/internal/daemon"
	"github.com/ManuGH/dvrtalk/internal/message"
	"github.com/ManuGH/dvrtalk/internal/transport"
	"github.com/spf13/cobra"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "send COMMAND [key=value ...]",
		Short: "Send a command to the relay server and print the response",
		Example: `  dvrtalk send whatson rec_time=2024-W05-WE
  dvrtalk send whenis title="Evening News" c_name=cnn
  dvrtalk send tellabout content_ids=ct.1,ct.2
  dvrtalk send pause`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			cfg, err := opts.load(cmd)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			c, closeFn, err := dialClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			return runSend(cmd.Context(), c, cmd.OutOrStdout(), args[0], fields, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the response as JSON")
	return cmd
}

// parseFields turns key=value arguments into command fields. content_ids
// takes a comma-separated list.
func parseFields(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", arg)
		}
		if key == "content_ids" {
			var ids []string
			for _, id := range strings.Split(value, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
			fields[key] = ids
			continue
		}
		fields[key] = value
	}
	return fields, nil
}

// dialClient opens the bus and a client-role transport. The returned func
// disconnects and releases the bus.
func dialClient(ctx context.Context, cfg config.AppConfig) (*client.Client, func(), error) {
	h, err := daemon.OpenBus(ctx, cfg.Bus)
	if err != nil {
		return nil, nil, err
	}
	t := transport.New(h.Bus, transport.Options{Inbound: cfg.Bus.Inbound, Outbound: cfg.Bus.Outbound})
	c := client.New(t, client.Options{
		ConnectTimeout:  cfg.Transport.ConnectTimeout,
		ResponseTimeout: cfg.Transport.ResponseTimeout,
	})
	closeFn := func() {
		if done := t.Done(); done != nil {
			if err := t.Disconnect(context.WithoutCancel(ctx)); err != nil {
				_ = t.Close()
			}
			select {
			case <-done:
			case <-time.After(time.Second):
				_ = t.Close()
				<-done
			}
		}
		_ = h.Close()
	}
	return c, closeFn, nil
}

func str(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func runSend(ctx context.Context, c *client.Client, out io.Writer, name string, fields map[string]any, asJSON bool) error {
	var result any
	var text string

	switch message.NormalizeCmd(name) {
	case "whatson":
		recs, err := c.WhatsOn(ctx, str(fields, "rec_time"))
		if err != nil {
			return err
		}
		result = recs
		titles := make([]string, 0, len(recs))
		for _, r := range recs {
			titles = append(titles, r.Title)
		}
		if len(titles) == 0 {
			text = "Nothing is scheduled to record."
		} else {
			text = "Recording " + client.JoinList(titles) + "."
		}

	case "tellabout":
		ids, _ := fields["content_ids"].([]string)
		details, err := c.TellAbout(ctx, ids...)
		if err != nil {
			return err
		}
		result = details
		var b strings.Builder
		for _, d := range details {
			b.WriteString(d.String())
		}
		text = strings.TrimRight(b.String(), "\n")

	case "whenis":
		offers, err := c.WhenIs(ctx, client.WhenIsQuery{
			Title:         str(fields, "title"),
			ChannelName:   str(fields, "c_name"),
			ChannelNumber: str(fields, "c_num"),
			RecTime:       str(fields, "rec_time"),
		})
		if err != nil {
			return err
		}
		result = offers
		lines := make([]string, 0, len(offers))
		for _, o := range offers {
			line := o.Title
			if o.Subtitle != "" {
				line += " (" + o.Subtitle + ")"
			}
			lines = append(lines, fmt.Sprintf("%s on %s at %s", line, o.Channel, o.StartTime))
		}
		if len(lines) == 0 {
			text = "No upcoming airings found."
		} else {
			text = strings.Join(lines, "\n")
		}

	case "pause", "resume", "advance":
		status, err := sendKey(ctx, c, message.NormalizeCmd(name))
		if err != nil {
			return err
		}
		result = map[string]string{"status": status}
		text = status

	default:
		payload, err := c.Exec(ctx, message.New(strings.ToUpper(name), fields))
		if err != nil {
			return err
		}
		result = payload
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		text = string(data)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err := fmt.Fprintln(out, text)
	return err
}

func sendKey(ctx context.Context, c *client.Client, name string) (string, error) {
	switch name {
	case "pause":
		return c.Pause(ctx)
	case "resume":
		return c.Resume(ctx)
	default:
		return c.Advance(ctx)
	}
}
