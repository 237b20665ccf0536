// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

import (
	"context"
	"testing"

	"github.com/ManuGH/dvrtalk/internal/bus"
	"github.com/ManuGH/dvrtalk/internal/message"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplexOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	b := bus.NewRedisBus(rdb)

	client := New(b, Options{})
	server := New(b, Options{})
	server.SwapChannels()
	connect(t, server)
	connect(t, client)

	require.NoError(t, client.Publish(context.Background(), message.New("PAUSE", nil)))
	msg, err := server.WaitForMessage(context.Background(), waitTimeout)
	require.NoError(t, err)
	cmd, _ := msg.Cmd()
	assert.Equal(t, "PAUSE", cmd)

	require.NoError(t, client.Disconnect(context.Background()))
	waitDisconnected(t, client)
	assert.True(t, server.Connected())

	require.NoError(t, server.Disconnect(context.Background()))
	waitDisconnected(t, server)
}

func TestDuplexOverRedisServerLoss(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	d := New(bus.NewRedisBus(rdb), Options{})
	connect(t, d)

	mr.Close()
	waitDisconnected(t, d)
	assert.False(t, d.Connected())
}
