// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transport implements one endpoint of a duplex channel: a pair of
// pub/sub topics shared with exactly one peer, one for inbound and one for
// outbound traffic.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/dvrtalk/internal/bus"
	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/message"
	"github.com/ManuGH/dvrtalk/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Default topics for the client role. The server role swaps them.
const (
	DefaultInbound  = "C_RESP"
	DefaultOutbound = "C_QUERY"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Options configure a Duplex.
type Options struct {
	Inbound  string
	Outbound string
	Logger   *zerolog.Logger
}

// Duplex bridges two topics on a bus. All state transitions happen under mu;
// the connected signal is a channel closed on entering StateConnected and
// replaced on leaving it.
type Duplex struct {
	bus     bus.Bus
	stopKey string
	queue   *deliveryQueue
	logger  zerolog.Logger

	mu        sync.Mutex
	inbound   string
	outbound  string
	state     State
	connected chan struct{}
	sub       bus.Subscription
	attempt   uint64        // bumped per Connect; a stale attempt must not install its sub
	listener  chan struct{} // closed when the current listener goroutine exits
}

// New creates a disconnected transport endpoint on b.
func New(b bus.Bus, opts Options) *Duplex {
	if opts.Inbound == "" {
		opts.Inbound = DefaultInbound
	}
	if opts.Outbound == "" {
		opts.Outbound = DefaultOutbound
	}
	logger := log.WithComponent("transport")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	d := &Duplex{
		bus:       b,
		stopKey:   uuid.NewString(),
		queue:     newDeliveryQueue(),
		inbound:   opts.Inbound,
		outbound:  opts.Outbound,
		connected: make(chan struct{}),
	}
	d.logger = logger.With().Str(log.FieldStopKey, d.stopKey).Logger()
	return d
}

// StopKey is the token this instance accepts in its STOP sentinel.
func (d *Duplex) StopKey() string { return d.stopKey }

// Inbound returns the topic this endpoint subscribes to.
func (d *Duplex) Inbound() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inbound
}

// Outbound returns the topic this endpoint publishes on.
func (d *Duplex) Outbound() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outbound
}

// State returns the current lifecycle state.
func (d *Duplex) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Connected reports the connectivity flag.
func (d *Duplex) Connected() bool {
	return d.State() == StateConnected
}

// Pending returns the number of queued, unconsumed messages.
func (d *Duplex) Pending() int {
	return d.queue.len()
}

// SwapChannels exchanges the inbound and outbound topics. It only has an
// effect while disconnected and reports whether the swap happened.
func (d *Duplex) SwapChannels() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateDisconnected {
		return false
	}
	d.inbound, d.outbound = d.outbound, d.inbound
	d.logger.Debug().
		Str(log.FieldInbound, d.inbound).
		Str(log.FieldOutbound, d.outbound).
		Msg("swapped channels")
	return true
}

// Connect subscribes to the inbound topic and starts the listener. It returns
// once the subscription request is issued; use WaitConnected to wait for the
// substrate's acknowledgment. Connect is a no-op unless disconnected.
//
// The substrate call runs without holding mu. The Connecting state reserves
// the topics meanwhile, and a Close in that window aborts the attempt.
func (d *Duplex) Connect(ctx context.Context) error {
	d.mu.Lock()
	if d.state != StateDisconnected {
		d.mu.Unlock()
		return nil
	}
	d.attempt++
	attempt := d.attempt
	inbound, outbound := d.inbound, d.outbound
	d.setStateLocked(StateConnecting)
	d.mu.Unlock()

	d.logger.Info().
		Str(log.FieldEvent, "transport.connecting").
		Str(log.FieldInbound, inbound).
		Str(log.FieldOutbound, outbound).
		Msg("subscribing to inbound topic")

	sub, err := d.bus.Subscribe(ctx, inbound)

	d.mu.Lock()
	current := d.attempt == attempt && d.state == StateConnecting && d.sub == nil
	if err != nil {
		if current {
			d.setStateLocked(StateDisconnected)
		}
		d.mu.Unlock()
		return fmt.Errorf("subscribe %q: %w", inbound, err)
	}
	if !current {
		d.mu.Unlock()
		_ = sub.Close()
		d.logger.Info().Str(log.FieldEvent, "transport.connect_aborted").Msg("connect aborted while subscribing")
		return ErrNotConnected
	}
	d.sub = sub
	d.listener = make(chan struct{})
	go d.listen(sub, d.listener)
	d.mu.Unlock()
	return nil
}

// WaitConnected blocks until the transport is connected, the timeout elapses
// or ctx is done. A non-positive timeout waits on ctx alone.
func (d *Duplex) WaitConnected(ctx context.Context, timeout time.Duration) bool {
	d.mu.Lock()
	if d.state == StateConnected {
		d.mu.Unlock()
		return true
	}
	signal := d.connected
	d.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case <-signal:
		return true
	case <-ctx.Done():
		return false
	}
}

// Publish encodes msg and sends it on the outbound topic.
func (d *Duplex) Publish(ctx context.Context, msg message.Message) error {
	d.mu.Lock()
	connected := d.state == StateConnected
	outbound := d.outbound
	d.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := d.bus.Publish(ctx, outbound, payload); err != nil {
		return err
	}
	metrics.IncTransportMessage("out")
	return nil
}

// WaitForMessage returns the next queued message, blocking up to timeout.
// The connectivity flag is checked before blocking. A non-positive timeout
// waits on ctx alone.
func (d *Duplex) WaitForMessage(ctx context.Context, timeout time.Duration) (message.Message, error) {
	if !d.Connected() {
		return nil, ErrNotConnected
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m, err := d.queue.pop(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return m, nil
}

// Disconnect publishes the STOP sentinel on this instance's own inbound topic.
// The listener tears the subscription down when it receives it; Disconnect
// does not wait for that to happen.
func (d *Duplex) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	active := d.sub != nil
	inbound := d.inbound
	d.mu.Unlock()
	if !active {
		return ErrNotConnected
	}

	stop := message.Message{message.KeyCmd: message.CmdStop, message.KeyStopKey: d.stopKey}
	payload, err := stop.Encode()
	if err != nil {
		return err
	}
	if err := d.bus.Publish(ctx, inbound, payload); err != nil {
		return fmt.Errorf("publish stop: %w", err)
	}
	metrics.IncTransportMessage("stop")
	return nil
}

// Close tears the subscription down locally, without the STOP round trip.
// Use it when the substrate may never deliver the sentinel. A Connect still
// waiting on the substrate is aborted.
func (d *Duplex) Close() error {
	d.mu.Lock()
	sub := d.sub
	if sub == nil {
		pending := d.state == StateConnecting
		if pending {
			d.attempt++
			d.setStateLocked(StateDisconnected)
		}
		d.mu.Unlock()
		if pending {
			return nil
		}
		return ErrNotConnected
	}
	d.mu.Unlock()
	d.detach(sub, "close")
	return nil
}

// Done returns a channel closed when the current listener has exited, or nil
// when never connected.
func (d *Duplex) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listener
}

// listen consumes substrate events for one subscription.
func (d *Duplex) listen(sub bus.Subscription, exited chan struct{}) {
	defer close(exited)

	for ev := range sub.Events() {
		switch ev.Kind {
		case bus.EventSubscribed:
			d.mu.Lock()
			if d.sub == sub && d.state == StateConnecting {
				d.setStateLocked(StateConnected)
			}
			d.mu.Unlock()
			d.logger.Info().Str(log.FieldEvent, "transport.connected").Msg("connected")

		case bus.EventUnsubscribed:
			d.detach(sub, "unsubscribed")
			return

		case bus.EventMessage:
			msg, err := message.Decode(ev.Payload)
			if err != nil {
				metrics.IncTransportDropped("decode")
				d.logger.Warn().Err(err).Str(log.FieldTopic, ev.Topic).Msg("dropping undecodable payload")
				continue
			}
			if msg.IsStop(d.stopKey) {
				d.logger.Debug().Msg("received own stop sentinel")
				d.detach(sub, "stop")
				return
			}
			metrics.IncTransportMessage("in")
			d.queue.push(msg)
		}
	}
	// Channel closed without an unsubscribe notification.
	d.detach(sub, "closed")
}

// detach unsubscribes and resets the connection state if sub is still current.
func (d *Duplex) detach(sub bus.Subscription, reason string) {
	d.mu.Lock()
	current := d.sub == sub
	if current {
		d.sub = nil
		d.setStateLocked(StateDisconnected)
	}
	d.mu.Unlock()

	if err := sub.Close(); err != nil {
		d.logger.Debug().Err(err).Msg("closing subscription")
	}
	if current {
		d.logger.Info().
			Str(log.FieldEvent, "transport.disconnected").
			Str("reason", reason).
			Msg("disconnected")
	}
}

func (d *Duplex) setStateLocked(next State) {
	prev := d.state
	if prev == next {
		return
	}
	d.state = next
	switch {
	case next == StateConnected:
		close(d.connected)
	case prev == StateConnected:
		d.connected = make(chan struct{})
	}
	metrics.SetTransportConnected(d.inbound, next == StateConnected)
	d.logger.Debug().
		Str(log.FieldOldState, prev.String()).
		Str(log.FieldNewState, next.String()).
		Msg("transport state changed")
}
