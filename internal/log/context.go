// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{ name string }

var (
	correlationIDKey = ctxKey{"correlation_id"}
	cmdKey           = ctxKey{"cmd"}
)

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithCorrelationID tags ctx with the id of the command or request being served.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withValue(ctx, correlationIDKey, id)
}

// ContextWithCmd tags ctx with the relay command name being processed.
func ContextWithCmd(ctx context.Context, cmd string) context.Context {
	return withValue(ctx, cmdKey, cmd)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey)
}

func CmdFromContext(ctx context.Context) string {
	return stringValue(ctx, cmdKey)
}

// WithContext enriches logger with the correlation id, command name and
// active trace id carried by ctx. logger is returned unchanged when ctx has none.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	fields := make(map[string]any, 3)
	if cid := CorrelationIDFromContext(ctx); cid != "" {
		fields[FieldCorrelationID] = cid
	}
	if cmd := CmdFromContext(ctx); cmd != "" {
		fields[FieldCmd] = cmd
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields[FieldTraceID] = sc.TraceID().String()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With().Fields(fields).Logger()
}

// WithComponentFromContext returns a component logger enriched from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
