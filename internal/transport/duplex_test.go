// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/dvrtalk/internal/bus"
	"github.com/ManuGH/dvrtalk/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const waitTimeout = 2 * time.Second

func connect(t *testing.T, d *Duplex) {
	t.Helper()
	require.NoError(t, d.Connect(context.Background()))
	require.True(t, d.WaitConnected(context.Background(), waitTimeout), "transport did not connect")
}

func waitDisconnected(t *testing.T, d *Duplex) {
	t.Helper()
	done := d.Done()
	require.NotNil(t, done)
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("listener did not exit")
	}
	require.Equal(t, StateDisconnected, d.State())
}

func TestNewDefaultsToClientTopics(t *testing.T) {
	d := New(bus.NewMemoryBus(), Options{})
	assert.Equal(t, DefaultInbound, d.Inbound())
	assert.Equal(t, DefaultOutbound, d.Outbound())
	assert.Equal(t, StateDisconnected, d.State())
	assert.NotEmpty(t, d.StopKey())
	assert.NotEqual(t, d.StopKey(), New(bus.NewMemoryBus(), Options{}).StopKey())
}

func TestSwapChannelsWhileDisconnected(t *testing.T) {
	d := New(bus.NewMemoryBus(), Options{Inbound: "in", Outbound: "out"})

	require.True(t, d.SwapChannels())
	assert.Equal(t, "out", d.Inbound())
	assert.Equal(t, "in", d.Outbound())

	require.True(t, d.SwapChannels())
	assert.Equal(t, "in", d.Inbound())
	assert.Equal(t, "out", d.Outbound())
}

func TestSwapChannelsIsNoOpWhileConnected(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := New(bus.NewMemoryBus(), Options{Inbound: "in", Outbound: "out"})
	connect(t, d)

	assert.False(t, d.SwapChannels())
	assert.Equal(t, "in", d.Inbound())
	assert.Equal(t, "out", d.Outbound())

	require.NoError(t, d.Disconnect(context.Background()))
	waitDisconnected(t, d)
}

func TestDisconnectedTransportFailsFast(t *testing.T) {
	d := New(bus.NewMemoryBus(), Options{})

	start := time.Now()
	err := d.Publish(context.Background(), message.New("PAUSE", nil))
	require.ErrorIs(t, err, ErrNotConnected)

	_, err = d.WaitForMessage(context.Background(), time.Minute)
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Less(t, time.Since(start), time.Second)

	require.ErrorIs(t, d.Disconnect(context.Background()), ErrNotConnected)
	assert.Nil(t, d.Done())
}

func TestWaitForMessageTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := New(bus.NewMemoryBus(), Options{})
	connect(t, d)

	_, err := d.WaitForMessage(context.Background(), 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.WaitForMessage(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, d.Disconnect(context.Background()))
	waitDisconnected(t, d)
}

func TestPeersExchangeMessagesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	client := New(b, Options{})
	server := New(b, Options{})
	require.True(t, server.SwapChannels())
	connect(t, client)
	connect(t, server)

	for _, cmd := range []string{"PAUSE", "RESUME", "ADVANCE"} {
		require.NoError(t, client.Publish(context.Background(), message.New(cmd, nil)))
	}
	for _, want := range []string{"PAUSE", "RESUME", "ADVANCE"} {
		msg, err := server.WaitForMessage(context.Background(), waitTimeout)
		require.NoError(t, err)
		cmd, _ := msg.Cmd()
		assert.Equal(t, want, cmd)
	}
	assert.Zero(t, server.Pending())

	require.NoError(t, server.Publish(context.Background(), message.Response("PAUSE", "PLAYING")))
	reply, err := client.WaitForMessage(context.Background(), waitTimeout)
	require.NoError(t, err)
	assert.Equal(t, "PLAYING", reply.Status())

	require.NoError(t, client.Disconnect(context.Background()))
	require.NoError(t, server.Disconnect(context.Background()))
	waitDisconnected(t, client)
	waitDisconnected(t, server)
}

func TestDisconnectTearsDownOwnListener(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	d := New(b, Options{Inbound: "in", Outbound: "out"})
	connect(t, d)
	require.Equal(t, 1, b.Subscribers("in"))

	require.NoError(t, d.Disconnect(context.Background()))
	waitDisconnected(t, d)

	assert.False(t, d.Connected())
	assert.Zero(t, b.Subscribers("in"))
	require.ErrorIs(t, d.Publish(context.Background(), message.New("PAUSE", nil)), ErrNotConnected)
}

func TestCloseTearsDownLocally(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	d := New(b, Options{Inbound: "in", Outbound: "out"})
	require.ErrorIs(t, d.Close(), ErrNotConnected)

	connect(t, d)
	require.NoError(t, d.Close())
	waitDisconnected(t, d)
	assert.Zero(t, b.Subscribers("in"))
}

func TestForeignStopIsDelivered(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	d := New(b, Options{Inbound: "in", Outbound: "out"})
	connect(t, d)

	foreign := message.Message{message.KeyCmd: message.CmdStop, message.KeyStopKey: "someone-else"}
	payload, err := foreign.Encode()
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), "in", payload))

	msg, err := d.WaitForMessage(context.Background(), waitTimeout)
	require.NoError(t, err)
	assert.True(t, msg.IsStop("someone-else"))
	assert.True(t, d.Connected())

	require.NoError(t, d.Disconnect(context.Background()))
	waitDisconnected(t, d)
}

func TestUndecodablePayloadIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	d := New(b, Options{Inbound: "in", Outbound: "out"})
	connect(t, d)

	require.NoError(t, b.Publish(context.Background(), "in", []byte("not json")))
	require.NoError(t, b.Publish(context.Background(), "in", []byte(`{"cmd":"WHATSON"}`)))

	msg, err := d.WaitForMessage(context.Background(), waitTimeout)
	require.NoError(t, err)
	cmd, _ := msg.Cmd()
	assert.Equal(t, "WHATSON", cmd)

	require.NoError(t, d.Disconnect(context.Background()))
	waitDisconnected(t, d)
}

func TestReconnectAfterDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	d := New(b, Options{Inbound: "in", Outbound: "out"})
	connect(t, d)
	require.NoError(t, d.Disconnect(context.Background()))
	waitDisconnected(t, d)

	require.True(t, d.SwapChannels())
	connect(t, d)
	assert.Equal(t, "out", d.Inbound())
	assert.Equal(t, 1, b.Subscribers("out"))

	require.NoError(t, d.Disconnect(context.Background()))
	waitDisconnected(t, d)
}

func TestConnectTwiceIsNoOp(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.NewMemoryBus()
	d := New(b, Options{Inbound: "in"})
	connect(t, d)
	require.NoError(t, d.Connect(context.Background()))
	assert.Equal(t, 1, b.Subscribers("in"))

	require.NoError(t, d.Disconnect(context.Background()))
	waitDisconnected(t, d)
}

// gatedBus holds Subscribe until release is closed.
type gatedBus struct {
	bus.Bus
	entered chan struct{}
	release chan struct{}
}

func newGatedBus() *gatedBus {
	return &gatedBus{Bus: bus.NewMemoryBus(), entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedBus) Subscribe(ctx context.Context, topic string) (bus.Subscription, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.Bus.Subscribe(ctx, topic)
}

func TestSlowSubscribeDoesNotBlockAccessors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	g := newGatedBus()
	d := New(g, Options{Inbound: "in", Outbound: "out"})
	errc := make(chan error, 1)
	go func() { errc <- d.Connect(context.Background()) }()
	<-g.entered

	accessors := make(chan struct{})
	go func() {
		defer close(accessors)
		assert.Equal(t, StateConnecting, d.State())
		assert.False(t, d.Connected())
		assert.ErrorIs(t, d.Publish(context.Background(), message.New("PAUSE", nil)), ErrNotConnected)
		assert.False(t, d.SwapChannels())
		assert.NoError(t, d.Connect(context.Background()))
	}()
	select {
	case <-accessors:
	case <-time.After(waitTimeout):
		t.Fatal("accessors blocked behind Subscribe")
	}

	close(g.release)
	require.NoError(t, <-errc)
	require.True(t, d.WaitConnected(context.Background(), waitTimeout))
	assert.Equal(t, "in", d.Inbound())

	require.NoError(t, d.Disconnect(context.Background()))
	waitDisconnected(t, d)
}

func TestCloseAbortsPendingConnect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	g := newGatedBus()
	d := New(g, Options{Inbound: "in"})
	errc := make(chan error, 1)
	go func() { errc <- d.Connect(context.Background()) }()
	<-g.entered

	require.NoError(t, d.Close())
	assert.Equal(t, StateDisconnected, d.State())

	close(g.release)
	require.ErrorIs(t, <-errc, ErrNotConnected)
	assert.Equal(t, StateDisconnected, d.State())
	assert.Nil(t, d.Done())
	assert.Equal(t, 0, g.Bus.(*bus.MemoryBus).Subscribers("in"))
}
