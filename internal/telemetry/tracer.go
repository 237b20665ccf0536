// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package telemetry wires OpenTelemetry tracing for the relay.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName prefixes every tracer.
const InstrumentationName = "github.com/ManuGH/dvrtalk"

// Exporter names accepted in Config.ExporterType.
const (
	ExporterGRPC = "grpc"
	ExporterHTTP = "http"
	ExporterNoop = "noop"
)

const defaultShutdownTimeout = 5 * time.Second

// ErrUnsupportedExporter is returned for an unknown Config.ExporterType.
var ErrUnsupportedExporter = errors.New("unsupported exporter type")

// Config selects where relay spans go.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	ExporterType   string  // grpc, http or noop
	Endpoint       string  // collector host:port
	SamplingRate   float64 // 0.0 to 1.0
}

func (c Config) active() bool {
	return c.Enabled && c.ExporterType != ExporterNoop
}

// Provider owns the installed tracer provider. A zero Provider is a no-op.
type Provider struct {
	tp   *sdktrace.TracerProvider
	once sync.Once
	err  error
}

// NewProvider installs the global tracer provider and propagator described by cfg.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.active() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(cfg.Environment),
	))
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Provider{tp: tp}, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterGRPC:
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp grpc exporter: %w", err)
		}
		return exp, nil
	case ExporterHTTP:
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp http exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExporter, cfg.ExporterType)
	}
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes pending spans once; later calls return the first result.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	p.once.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
		p.err = p.tp.Shutdown(ctx)
	})
	return p.err
}

// Tracer returns a tracer scoped under the relay's instrumentation name.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(InstrumentationName + "/" + name)
}

// RecordError marks span as failed with err classified as errorType.
func RecordError(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(ErrorAttributes(err, errorType)...)
}
