// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dispatch runs the server side of the relay: it reads commands off a
// transport, executes them against the DVR and publishes the responses.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ManuGH/dvrtalk/internal/calendar"
	"github.com/ManuGH/dvrtalk/internal/channels"
	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/message"
	"github.com/ManuGH/dvrtalk/internal/metrics"
	"github.com/ManuGH/dvrtalk/internal/query"
	"github.com/ManuGH/dvrtalk/internal/rpc"
	"github.com/ManuGH/dvrtalk/internal/telemetry"
	"github.com/ManuGH/dvrtalk/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const defaultPollInterval = 5 * time.Second

// Transport is the part of the duplex transport the dispatcher needs.
type Transport interface {
	WaitForMessage(ctx context.Context, timeout time.Duration) (message.Message, error)
	Publish(ctx context.Context, msg message.Message) error
}

// HandlerFunc executes one command. A nil response publishes nothing.
type HandlerFunc func(ctx context.Context, msg message.Message) (message.Message, error)

// Options tune a Dispatcher.
type Options struct {
	Resolver     calendar.Resolver
	Pager        query.Pager
	PollInterval time.Duration
	Logger       *zerolog.Logger
}

// Dispatcher maps command names to handlers. It is single-threaded: one
// command is handled at a time.
type Dispatcher struct {
	t        Transport
	opener   rpc.Opener
	dir      *channels.Directory
	opts     Options
	handlers map[string]HandlerFunc
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// New builds a dispatcher with the standard handler table.
func New(t Transport, opener rpc.Opener, dir *channels.Directory, opts Options) *Dispatcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if dir == nil {
		dir = channels.NewDirectory(nil)
	}
	logger := log.WithComponent("dispatch")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	d := &Dispatcher{
		t:      t,
		opener: opener,
		dir:    dir,
		opts:   opts,
		tracer: telemetry.Tracer("dispatch"),
		logger: logger,
	}
	d.handlers = map[string]HandlerFunc{
		"pause":     d.keyHandler("pause"),
		"resume":    d.keyHandler("play"),
		"advance":   d.keyHandler("advance"),
		"whatson":   d.handleWhatsOn,
		"tellabout": d.handleTellAbout,
		"whenis":    d.handleWhenIs,
	}
	return d
}

// Commands returns the registered command names, sorted.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run processes commands until ctx is done or the transport disconnects.
// Idle polls are not errors.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info().Str(log.FieldEvent, "dispatch.started").Strs("commands", d.Commands()).Msg("dispatcher running")
	for {
		msg, err := d.t.WaitForMessage(ctx, d.opts.PollInterval)
		switch {
		case err == nil:
		case errors.Is(err, transport.ErrTimeout):
			continue
		case ctx.Err() != nil:
			d.logger.Info().Str(log.FieldEvent, "dispatch.stopped").Msg("dispatcher stopped")
			return nil
		default:
			return fmt.Errorf("wait for command: %w", err)
		}

		resp := d.Handle(ctx, msg)
		if resp == nil {
			continue
		}
		if err := d.t.Publish(ctx, resp); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, transport.ErrNotConnected) {
				return fmt.Errorf("publish response: %w", err)
			}
			d.logger.Error().Err(err).Str(log.FieldCmd, resp.OptionalString(message.KeyCmd)).Msg("failed to publish response")
		}
	}
}

// Handle executes one message and returns the envelope to publish, if any.
// Handler failures become ERROR envelopes; unknown commands and messages
// without a command produce nothing.
func (d *Dispatcher) Handle(ctx context.Context, msg message.Message) message.Message {
	cmd, ok := msg.Cmd()
	if !ok || cmd == "" {
		metrics.RecordCommand("", "invalid", 0)
		d.logger.Warn().Str(log.FieldEvent, "dispatch.no_cmd").Interface("message", msg).Msg("message contained no command")
		return nil
	}

	ctx = log.ContextWithCorrelationID(ctx, uuid.NewString())
	ctx = log.ContextWithCmd(ctx, cmd)
	logger := log.WithContext(ctx, d.logger)

	name := message.NormalizeCmd(cmd)
	h, ok := d.handlers[name]
	if !ok {
		metrics.RecordCommand("", "unknown", 0)
		logger.Warn().Err(ErrUnknownCommand).Msg("unknown command received")
		return nil
	}

	ctx, span := d.tracer.Start(ctx, "dispatch."+name, trace.WithAttributes(telemetry.CommandAttributes(name, "", -1)...))
	defer span.End()

	start := time.Now()
	logger.Info().Str(log.FieldEvent, "dispatch.command").Msg("processing command")
	resp, err := h(ctx, msg)
	result := outcome(err)
	metrics.RecordCommand(name, result, time.Since(start))
	span.SetAttributes(telemetry.CommandAttributes(name, result, items(resp))...)

	if err != nil {
		telemetry.RecordError(span, err, result)
		logger.Error().Err(err).Str(log.FieldStatus, result).Msg("command failed")
		return message.Failure(cmd, err)
	}
	logger.Debug().Str(log.FieldStatus, resp.Status()).Dur("duration", time.Since(start)).Msg("command completed")
	return resp
}

func items(resp message.Message) int {
	if resp == nil {
		return -1
	}
	if n, ok := resp.Int(message.KeyTotalCount); ok {
		return n
	}
	return -1
}

// withSearcher runs fn with a fresh session that is closed on every path.
func (d *Dispatcher) withSearcher(ctx context.Context, fn func(s *query.Searcher) error) error {
	sess, err := d.opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger := log.WithContext(ctx, d.logger)
			logger.Debug().Err(cerr).Msg("closing session")
		}
	}()
	return fn(query.NewSearcher(sess, d.opts.Pager))
}
