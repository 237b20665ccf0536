// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/dvrtalk/internal/bus"
	"github.com/ManuGH/dvrtalk/internal/calendar"
	"github.com/ManuGH/dvrtalk/internal/channels"
	"github.com/ManuGH/dvrtalk/internal/message"
	"github.com/ManuGH/dvrtalk/internal/metrics"
	"github.com/ManuGH/dvrtalk/internal/query"
	"github.com/ManuGH/dvrtalk/internal/rpc"
	"github.com/ManuGH/dvrtalk/internal/rpc/rpctest"
	"github.com/ManuGH/dvrtalk/internal/transport"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport feeds queued messages and records published responses.
type fakeTransport struct {
	mu        sync.Mutex
	inbox     []message.Message
	published []message.Message
	waitErr   error
}

func (f *fakeTransport) WaitForMessage(ctx context.Context, timeout time.Duration) (message.Message, error) {
	f.mu.Lock()
	if len(f.inbox) > 0 {
		m := f.inbox[0]
		f.inbox = f.inbox[1:]
		f.mu.Unlock()
		return m, nil
	}
	waitErr := f.waitErr
	f.mu.Unlock()
	if waitErr != nil {
		return nil, waitErr
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, transport.ErrTimeout
	}
}

func (f *fakeTransport) Publish(_ context.Context, msg message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeTransport) Published() []message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message.Message(nil), f.published...)
}

func keyServer() *rpctest.Server {
	return rpctest.NewServer("tsn:1", rpctest.Route(map[string]rpctest.Handler{
		query.TypeKeyEventSend: func(req rpctest.Request) (rpc.Body, error) {
			if req.Payload["event"] == "advance" {
				return rpc.Body{"type": "playing"}, nil
			}
			return rpc.Body{"type": "success"}, nil
		},
	}))
}

func newTestDispatcher(t *testing.T, tr Transport, srv *rpctest.Server) *Dispatcher {
	t.Helper()
	return New(tr, srv, channels.NewDirectory(testLineup), Options{
		Resolver:     calendar.Resolver{Location: time.UTC, Now: func() time.Time { return testNow }},
		PollInterval: 10 * time.Millisecond,
	})
}

func commandCount(t *testing.T, cmd, outcome string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, metrics.CommandsTotal.WithLabelValues(cmd, outcome).Write(m))
	return m.GetCounter().GetValue()
}

func TestCommandsTable(t *testing.T) {
	d := newTestDispatcher(t, &fakeTransport{}, keyServer())
	assert.Equal(t, []string{"advance", "pause", "resume", "tellabout", "whatson", "whenis"}, d.Commands())
}

func TestKeyCommandsSendEvents(t *testing.T) {
	srv := keyServer()
	d := newTestDispatcher(t, &fakeTransport{}, srv)

	tests := []struct {
		cmd, event, status string
	}{
		{"PAUSE", "pause", "SUCCESS"},
		{"Resume", "play", "SUCCESS"},
		{"advance", "advance", "PLAYING"},
	}
	for i, tt := range tests {
		resp := d.Handle(context.Background(), message.New(tt.cmd, nil))
		assert.Equal(t, message.Message{"cmd": tt.cmd, "status": tt.status}, resp, tt.cmd)
		assert.Equal(t, tt.event, srv.Requests()[i].Payload["event"])
	}
	assert.Equal(t, 3, srv.Opened())
	assert.Equal(t, 3, srv.Closed())
}

func TestUnknownAndMalformedCommandsAreSwallowed(t *testing.T) {
	srv := keyServer()
	d := newTestDispatcher(t, &fakeTransport{}, srv)
	before := commandCount(t, "unknown", "unknown")

	assert.Nil(t, d.Handle(context.Background(), message.New("REWIND", nil)))
	assert.Nil(t, d.Handle(context.Background(), message.Message{"title": "no command"}))
	assert.Zero(t, srv.Opened())
	assert.Equal(t, before+1, commandCount(t, "unknown", "unknown"))
}

func TestRemoteFailureBecomesErrorEnvelope(t *testing.T) {
	srv := rpctest.NewServer("tsn:1", rpctest.Static(rpctest.ErrorBody("deviceOffline", "box asleep")))
	d := newTestDispatcher(t, &fakeTransport{}, srv)

	resp := d.Handle(context.Background(), message.New("PAUSE", nil))
	require.NotNil(t, resp)
	assert.Equal(t, "PAUSE", resp.OptionalString("cmd"))
	assert.Equal(t, message.StatusError, resp.Status())
	assert.Contains(t, resp.OptionalString(message.KeyError), "box asleep")
	assert.Equal(t, 1, srv.Closed(), "session must be released on failure")
}

func TestSessionOpenFailureBecomesErrorEnvelope(t *testing.T) {
	srv := keyServer()
	srv.FailOpen(rpc.ErrCircuitOpen)
	d := newTestDispatcher(t, &fakeTransport{}, srv)

	resp := d.Handle(context.Background(), message.New("PAUSE", nil))
	assert.Equal(t, message.StatusError, resp.Status())

	_, err := d.keyHandler("pause")(context.Background(), message.New("PAUSE", nil))
	require.ErrorIs(t, err, ErrCommand)
	require.ErrorIs(t, err, rpc.ErrCircuitOpen)
}

func TestRunPublishesResponsesAndStopsOnCancel(t *testing.T) {
	tr := &fakeTransport{inbox: []message.Message{
		message.New("PAUSE", nil),
		message.New("NOPE", nil),
		message.New("RESUME", nil),
	}}
	d := newTestDispatcher(t, tr, keyServer())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return len(tr.Published()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	pub := tr.Published()
	assert.Equal(t, "PAUSE", pub[0].OptionalString("cmd"))
	assert.Equal(t, "RESUME", pub[1].OptionalString("cmd"))
}

func TestRunReturnsWhenTransportDisconnects(t *testing.T) {
	tr := &fakeTransport{waitErr: transport.ErrNotConnected}
	d := newTestDispatcher(t, tr, keyServer())

	err := d.Run(context.Background())
	require.ErrorIs(t, err, transport.ErrNotConnected)
}

func TestEndToEndPauseOverBus(t *testing.T) {
	b := bus.NewMemoryBus()
	server := transport.New(b, transport.Options{})
	require.True(t, server.SwapChannels())
	client := transport.New(b, transport.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, tr := range []*transport.Duplex{server, client} {
		require.NoError(t, tr.Connect(ctx))
		require.True(t, tr.WaitConnected(ctx, 2*time.Second))
	}

	d := newTestDispatcher(t, server, keyServer())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, client.Publish(ctx, message.New("PAUSE", nil)))
	resp, err := client.WaitForMessage(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "PAUSE", resp.OptionalString("cmd"))
	assert.Equal(t, "SUCCESS", resp.Status())

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, client.Disconnect(context.Background()))
	require.NoError(t, server.Disconnect(context.Background()))
	<-client.Done()
	<-server.Done()
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", outcome(nil))
	assert.Equal(t, "invalid", outcome(calendar.ErrParse))
	assert.Equal(t, "no_match", outcome(channels.ErrNoMatch))
	assert.Equal(t, "remote_error", outcome(&rpc.Error{Sentinel: rpc.ErrRemote}))
	assert.Equal(t, "rejected", outcome(rpc.ErrRateLimited))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}

func TestSessionCloseFailureIsLoggedNotReturned(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	srv := keyServer()
	srv.FailClose(errors.New("socket already gone"))
	d := New(&fakeTransport{}, srv, channels.NewDirectory(testLineup), Options{Logger: &logger})

	resp := d.Handle(context.Background(), message.New("PAUSE", nil))
	assert.Equal(t, message.StatusSuccess, resp.Status())
	assert.Equal(t, 1, srv.Closed())
	assert.Contains(t, buf.String(), "socket already gone")
	assert.Contains(t, buf.String(), `"cmd":"PAUSE"`)
}
