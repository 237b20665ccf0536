// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath skips the file.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: map[string]struct{}{EnvConfigPath: {}},
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// UnusedEnvKeys lists DVRTALK_* variables in the environment that no
// setting consumed. Call after Load.
func (l *Loader) UnusedEnvKeys() []string {
	var out []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if _, ok := l.ConsumedEnvKeys[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// loadFile decodes a YAML file onto cfg with STRICT parsing.
// Unknown fields fail the load to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Role = l.envString(EnvPrefix+"ROLE", cfg.Role)
	cfg.LogLevel = l.envString(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)
	cfg.Timezone = l.envString(EnvPrefix+"TIMEZONE", cfg.Timezone)

	cfg.Bus.RedisAddr = l.envString(EnvPrefix+"BUS_REDIS_ADDR", cfg.Bus.RedisAddr)
	cfg.Bus.RedisPassword = l.envString(EnvPrefix+"BUS_REDIS_PASSWORD", cfg.Bus.RedisPassword)
	cfg.Bus.RedisDB = l.envInt(EnvPrefix+"BUS_REDIS_DB", cfg.Bus.RedisDB)
	cfg.Bus.Inbound = l.envString(EnvPrefix+"BUS_INBOUND", cfg.Bus.Inbound)
	cfg.Bus.Outbound = l.envString(EnvPrefix+"BUS_OUTBOUND", cfg.Bus.Outbound)

	cfg.Device.GatewayURL = l.envString(EnvPrefix+"DEVICE_GATEWAY_URL", cfg.Device.GatewayURL)
	cfg.Device.BodyID = l.envString(EnvPrefix+"DEVICE_BODY_ID", cfg.Device.BodyID)
	cfg.Device.Token = l.envString(EnvPrefix+"DEVICE_TOKEN", cfg.Device.Token)
	cfg.Device.Timeout = l.envDuration(EnvPrefix+"DEVICE_TIMEOUT", cfg.Device.Timeout)
	cfg.Device.RateLimit = l.envFloat(EnvPrefix+"DEVICE_RATE_LIMIT", cfg.Device.RateLimit)
	cfg.Device.Burst = l.envInt(EnvPrefix+"DEVICE_BURST", cfg.Device.Burst)
	cfg.Device.BreakerThreshold = l.envInt(EnvPrefix+"DEVICE_BREAKER_THRESHOLD", cfg.Device.BreakerThreshold)
	cfg.Device.BreakerReset = l.envDuration(EnvPrefix+"DEVICE_BREAKER_RESET", cfg.Device.BreakerReset)

	cfg.Channels.CacheFile = l.envString(EnvPrefix+"CHANNELS_CACHE_FILE", cfg.Channels.CacheFile)

	cfg.Query.PageSize = l.envInt(EnvPrefix+"QUERY_PAGE_SIZE", cfg.Query.PageSize)
	cfg.Query.HintMode = l.envString(EnvPrefix+"QUERY_HINT_MODE", cfg.Query.HintMode)

	cfg.Ops.Listen = l.envString(EnvPrefix+"OPS_LISTEN", cfg.Ops.Listen)
	cfg.Ops.RateLimit = l.envInt(EnvPrefix+"OPS_RATE_LIMIT", cfg.Ops.RateLimit)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = l.envString(EnvPrefix+"TELEMETRY_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = l.envString(EnvPrefix+"TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.Transport.ConnectTimeout = l.envDuration(EnvPrefix+"TRANSPORT_CONNECT_TIMEOUT", cfg.Transport.ConnectTimeout)
	cfg.Transport.PollInterval = l.envDuration(EnvPrefix+"TRANSPORT_POLL_INTERVAL", cfg.Transport.PollInterval)
	cfg.Transport.ResponseTimeout = l.envDuration(EnvPrefix+"TRANSPORT_RESPONSE_TIMEOUT", cfg.Transport.ResponseTimeout)
}

// LoadFileConfig loads a YAML config file over defaults without env overrides or validation.
func LoadFileConfig(path string) (AppConfig, error) {
	cfg := Defaults()
	err := NewLoader(path, "").loadFile(path, &cfg)
	return cfg, err
}
