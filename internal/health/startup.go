// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/dvrtalk/internal/config"
	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the server role starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkCacheDir(logger, cfg.Channels.CacheFile); err != nil {
		return fmt.Errorf("channel cache check failed: %w", err)
	}
	if err := checkListenAddr(logger, cfg.Ops.Listen); err != nil {
		return fmt.Errorf("ops listener check failed: %w", err)
	}
	if err := checkGatewayURL(logger, cfg.Device.GatewayURL); err != nil {
		return fmt.Errorf("device gateway check failed: %w", err)
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

// checkCacheDir ensures the channel cache file's directory exists and is writable.
func checkCacheDir(logger zerolog.Logger, cacheFile string) error {
	dir := filepath.Dir(cacheFile)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", dir, err)
	}
	_ = os.Remove(testFile)
	logger.Debug().Str("path", dir).Msg("channel cache directory is writable")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	if addr == "" {
		logger.Info().Msg("ops listener disabled")
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	return nil
}

func checkGatewayURL(logger zerolog.Logger, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid gateway URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("gateway scheme must be http or https, got: %q", u.Scheme)
	}
	logger.Debug().Str("url", u.Redacted()).Msg("device gateway URL is valid")
	return nil
}
