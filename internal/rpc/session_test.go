// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/dvrtalk/internal/rpc"
	"github.com/ManuGH/dvrtalk/internal/rpc/rpctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeIsCanonicalUTC(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	ts := time.Date(2024, 3, 9, 20, 15, 0, 0, berlin)
	assert.Equal(t, "2024-03-09 19:15:00", rpc.FormatTime(ts))

	parsed, err := rpc.ParseTime("2024-03-09 19:15:00")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}

func TestCheckResponse(t *testing.T) {
	require.NoError(t, rpc.CheckResponse("op", rpc.Header{}, rpc.Body{"type": "recordingList"}))

	err := rpc.CheckResponse("op", rpc.Header{}, rpc.Body{"type": "error", "code": "authenticationFailed", "text": "denied"})
	var rerr *rpc.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "op", rerr.Op)
	assert.Equal(t, "authenticationFailed", rerr.Code)
	assert.True(t, rpc.IsRemote(err))
	assert.Contains(t, err.Error(), "denied")

	err = rpc.CheckResponse("op", rpc.Header{"type": "error"}, rpc.Body{"type": "x"})
	assert.True(t, rpc.IsRemote(err))

	require.ErrorIs(t, rpc.CheckResponse("op", nil, nil), rpc.ErrBadResponse)
}

func TestCall(t *testing.T) {
	srv := rpctest.NewServer("tsn:1", rpctest.Route(map[string]rpctest.Handler{
		"keyEventSend": rpctest.Static(rpc.Body{"type": "success"}),
	}))
	sess, err := srv.Open(context.Background())
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()

	body, err := rpc.Call(context.Background(), sess, "keyEventSend", map[string]any{"event": "pause"})
	require.NoError(t, err)
	assert.Equal(t, "success", body.Type())

	_, err = rpc.Call(context.Background(), sess, "unknown", nil)
	assert.True(t, rpc.IsRemote(err))

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "pause", reqs[0].Payload["event"])
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := &rpc.Error{Sentinel: rpc.ErrUnavailable, Op: "open", Err: cause}
	assert.ErrorIs(t, err, rpc.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.False(t, rpc.IsRemote(err))
}
