// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the relay configuration with the precedence
// environment > YAML file > defaults.
//
// The YAML file is parsed strictly: unknown keys fail the load. Every key
// can be overridden with a DVRTALK_* environment variable, for example
// DVRTALK_BUS_REDIS_ADDR or DVRTALK_DEVICE_GATEWAY_URL.
package config
