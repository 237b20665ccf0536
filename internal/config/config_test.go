// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dvrtalk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const serverYAML = `
role: server
timezone: America/New_York
bus:
  redisAddr: localhost:6379
device:
  gatewayURL: http://tivo.local:8080
  bodyId: tsn:123
  token: s3cret
  timeout: 4s
query:
  pageSize: 50
  hintMode: always
transport:
  pollInterval: 2s
`

func TestLoadFileOverDefaults(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, serverYAML), "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Bus.RedisAddr)
	assert.Equal(t, "C_QUERY", cfg.Bus.Outbound, "unset keys keep defaults")
	assert.Equal(t, 4*time.Second, cfg.Device.Timeout)
	assert.Equal(t, 50, cfg.Query.PageSize)
	assert.Equal(t, "always", cfg.Query.HintMode)
	assert.Equal(t, 2*time.Second, cfg.Transport.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.Transport.ResponseTimeout)
	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "America/New_York", cfg.Location().String())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("DVRTALK_BUS_REDIS_ADDR", "redis:6380")
	t.Setenv("DVRTALK_QUERY_PAGE_SIZE", "25")
	t.Setenv("DVRTALK_TRANSPORT_POLL_INTERVAL", "750ms")
	t.Setenv("DVRTALK_TELEMETRY_ENABLED", "yes")
	t.Setenv("DVRTALK_DEVICE_RATE_LIMIT", "not-a-number")

	l := NewLoader(writeConfig(t, serverYAML), "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "redis:6380", cfg.Bus.RedisAddr)
	assert.Equal(t, 25, cfg.Query.PageSize)
	assert.Equal(t, 750*time.Millisecond, cfg.Transport.PollInterval)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.InDelta(t, 5.0, cfg.Device.RateLimit, 0, "invalid env value falls back")
}

func TestUnusedEnvKeys(t *testing.T) {
	t.Setenv("DVRTALK_BUS_REDISADDR", "typo")
	l := NewLoader(writeConfig(t, serverYAML), "")
	_, err := l.Load()
	require.NoError(t, err)
	assert.Contains(t, l.UnusedEnvKeys(), "DVRTALK_BUS_REDISADDR")
	assert.NotContains(t, l.UnusedEnvKeys(), "DVRTALK_BUS_REDIS_ADDR")
}

func TestStrictFileParsing(t *testing.T) {
	_, err := NewLoader(writeConfig(t, "role: server\nbus:\n  redisHost: x\n"), "").Load()
	require.ErrorIs(t, err, ErrUnknownConfigField)

	_, err = NewLoader(writeConfig(t, "role: server\n---\nrole: client\n"), "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")

	path := filepath.Join(t.TempDir(), "dvrtalk.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err = NewLoader(path, "").Load()
	assert.ErrorContains(t, err, "only YAML supported")
}

func TestEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadFileConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestClientRoleNeedsNoDevice(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, "role: client\n"), "").Load()
	require.NoError(t, err)
	assert.Equal(t, RoleClient, cfg.Role)
}

func TestValidate(t *testing.T) {
	valid := func() AppConfig {
		c := Defaults()
		c.Device.GatewayURL = "http://tivo.local"
		c.Device.BodyID = "tsn:1"
		return c
	}
	require.NoError(t, Validate(valid()))

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"bad role", func(c *AppConfig) { c.Role = "relay" }, "role"},
		{"bad level", func(c *AppConfig) { c.LogLevel = "loud" }, "logLevel"},
		{"bad timezone", func(c *AppConfig) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"empty topic", func(c *AppConfig) { c.Bus.Inbound = "" }, "topics must be set"},
		{"same topics", func(c *AppConfig) { c.Bus.Outbound = c.Bus.Inbound }, "must differ"},
		{"server without gateway", func(c *AppConfig) { c.Device.GatewayURL = "" }, "gatewayURL"},
		{"relative gateway", func(c *AppConfig) { c.Device.GatewayURL = "tivo.local" }, "absolute URL"},
		{"server without body", func(c *AppConfig) { c.Device.BodyID = "" }, "bodyId"},
		{"bad hint mode", func(c *AppConfig) { c.Query.HintMode = "sometimes" }, "hintMode"},
		{"zero page size", func(c *AppConfig) { c.Query.PageSize = 0 }, "pageSize"},
		{"bad exporter", func(c *AppConfig) { c.Telemetry.ExporterType = "zipkin" }, "exporterType"},
		{"sampling rate", func(c *AppConfig) { c.Telemetry.SamplingRate = 1.5 }, "samplingRate"},
		{"zero poll", func(c *AppConfig) { c.Transport.PollInterval = 0 }, "transport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := Validate(c)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRedacted(t *testing.T) {
	c := Defaults()
	c.Bus.RedisPassword = "pw"
	c.Device.Token = "tok"
	r := c.Redacted()
	assert.Equal(t, "***", r.Bus.RedisPassword)
	assert.Equal(t, "***", r.Device.Token)
	assert.Equal(t, "pw", c.Bus.RedisPassword, "original untouched")
	assert.Empty(t, Defaults().Redacted().Device.Token)
}
