// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Roles a process can take on the bus.
const (
	RoleServer = "server"
	RoleClient = "client"
)

// AppConfig is the effective configuration after defaults, file and
// environment have been merged.
type AppConfig struct {
	Role      string          `yaml:"role"`
	LogLevel  string          `yaml:"logLevel"`
	Timezone  string          `yaml:"timezone"`
	Bus       BusConfig       `yaml:"bus"`
	Device    DeviceConfig    `yaml:"device"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Query     QueryConfig     `yaml:"query"`
	Ops       OpsConfig       `yaml:"ops"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Transport TransportConfig `yaml:"transport"`

	// Version is injected from the binary, never read from file.
	Version string `yaml:"-"`
}

// BusConfig selects the pub/sub substrate and the topic pair.
// An empty RedisAddr selects the in-process bus.
type BusConfig struct {
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	Inbound       string `yaml:"inbound"`
	Outbound      string `yaml:"outbound"`
}

// DeviceConfig addresses the DVR's JSON RPC gateway.
type DeviceConfig struct {
	GatewayURL       string        `yaml:"gatewayURL"`
	BodyID           string        `yaml:"bodyId"`
	Token            string        `yaml:"token"`
	Timeout          time.Duration `yaml:"timeout"`
	RateLimit        float64       `yaml:"rateLimit"`
	Burst            int           `yaml:"burst"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

type ChannelsConfig struct {
	CacheFile string `yaml:"cacheFile"`
}

type QueryConfig struct {
	PageSize int    `yaml:"pageSize"`
	HintMode string `yaml:"hintMode"`
}

// OpsConfig configures the operational HTTP listener. An empty Listen
// disables it.
type OpsConfig struct {
	Listen    string `yaml:"listen"`
	RateLimit int    `yaml:"rateLimit"` // requests per minute per client IP
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporterType"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

type TransportConfig struct {
	ConnectTimeout  time.Duration `yaml:"connectTimeout"`
	PollInterval    time.Duration `yaml:"pollInterval"`
	ResponseTimeout time.Duration `yaml:"responseTimeout"`
}

// Location resolves the configured timezone, falling back to local time.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c AppConfig) Redacted() AppConfig {
	if c.Bus.RedisPassword != "" {
		c.Bus.RedisPassword = maskedValue
	}
	if c.Device.Token != "" {
		c.Device.Token = maskedValue
	}
	return c
}

const maskedValue = "***"
