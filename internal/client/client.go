// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package client issues commands to the relay server over the duplex
// transport and collects its responses.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/message"
	"github.com/rs/zerolog"
)

var (
	// ErrCommand means the server answered with a failure or a response for
	// a different command.
	ErrCommand = errors.New("client: command failed")
	// ErrConnect means the transport did not connect in time.
	ErrConnect = errors.New("client: failed to connect to relay")
)

// Transport is the part of the duplex transport the client needs.
type Transport interface {
	Connect(ctx context.Context) error
	WaitConnected(ctx context.Context, timeout time.Duration) bool
	Publish(ctx context.Context, msg message.Message) error
	WaitForMessage(ctx context.Context, timeout time.Duration) (message.Message, error)
}

// Options tune the client's waits.
type Options struct {
	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration
	Logger          *zerolog.Logger
}

// Client sends commands and waits for their responses. It is not safe for
// concurrent use; responses are matched by order.
type Client struct {
	t      Transport
	opts   Options
	logger zerolog.Logger
}

// New returns a client. Timeouts default to 1s to connect and 3s per response.
func New(t Transport, opts Options) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = time.Second
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = 3 * time.Second
	}
	logger := log.WithComponent("client")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{t: t, opts: opts, logger: logger}
}

func (c *Client) connect(ctx context.Context) error {
	if err := c.t.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if !c.t.WaitConnected(ctx, c.opts.ConnectTimeout) {
		return fmt.Errorf("%w: no acknowledgment within %s", ErrConnect, c.opts.ConnectTimeout)
	}
	return nil
}

// Send publishes msg without waiting for a response.
func (c *Client) Send(ctx context.Context, msg message.Message) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	c.logger.Debug().Str(log.FieldCmd, msg.OptionalString(message.KeyCmd)).Msg("sending command")
	return c.t.Publish(ctx, msg)
}

// roundTrip sends msg and returns the first response, checked for success.
func (c *Client) roundTrip(ctx context.Context, msg message.Message) (message.Message, error) {
	if err := c.Send(ctx, msg); err != nil {
		return nil, err
	}
	resp, err := c.t.WaitForMessage(ctx, c.opts.ResponseTimeout)
	if err != nil {
		return nil, err
	}
	if err := check(msg, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func check(req, resp message.Message) error {
	want, _ := req.Cmd()
	got, _ := resp.Cmd()
	if got != want {
		return fmt.Errorf("%w: expected response to %s, got %s", ErrCommand, want, got)
	}
	if resp.Status() != message.StatusSuccess {
		if text := resp.OptionalString(message.KeyError); text != "" {
			return fmt.Errorf("%w: %s: %s", ErrCommand, want, text)
		}
		return fmt.Errorf("%w: %s: status %s", ErrCommand, want, resp.Status())
	}
	return nil
}

// Exec sends msg, requires a SUCCESS response and returns its optional
// payload field.
func (c *Client) Exec(ctx context.Context, msg message.Message) (any, error) {
	resp, err := c.roundTrip(ctx, msg)
	if err != nil {
		return nil, err
	}
	return resp[message.KeyPayload], nil
}

// ExecList sends msg and accumulates listKey across responses until
// total_count items have arrived.
func (c *Client) ExecList(ctx context.Context, msg message.Message, listKey string) ([]any, error) {
	resp, err := c.roundTrip(ctx, msg)
	if err != nil {
		return nil, err
	}
	total, ok := resp.Int(message.KeyTotalCount)
	if !ok {
		return nil, fmt.Errorf("%w: response has no %s", ErrCommand, message.KeyTotalCount)
	}

	items := []any{}
	for {
		part, _ := resp[listKey].([]any)
		items = append(items, part...)
		if len(items) >= total {
			return items, nil
		}
		resp, err = c.t.WaitForMessage(ctx, c.opts.ResponseTimeout)
		if err != nil {
			return nil, err
		}
		if err := check(msg, resp); err != nil {
			return nil, err
		}
	}
}
