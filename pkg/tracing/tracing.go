// Package tracing installs the OpenTelemetry tracer provider for the service.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

type options struct {
	serviceName string
	endpoint    string
	sampler     sdktrace.Sampler
}

// Option configures Init.
type Option func(*options)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithEndpoint sets the OTLP/HTTP collector URL. An empty endpoint disables export.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithSampler overrides the default always-on sampler.
func WithSampler(s sdktrace.Sampler) Option {
	return func(o *options) {
		if s != nil {
			o.sampler = s
		}
	}
}

// Init registers a global tracer provider exporting to the configured endpoint.
// Without an endpoint the global no-op provider stays in place and the returned
// shutdown does nothing.
func Init(ctx context.Context, opts ...Option) (ShutdownFunc, error) {
	o := &options{serviceName: "standings", sampler: sdktrace.AlwaysSample()}
	for _, opt := range opts {
		opt(o)
	}

	noop := func(context.Context) error { return nil }
	if o.endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(o.endpoint))
	if err != nil {
		return noop, fmt.Errorf("tracing: exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(o.serviceName)))
	if err != nil {
		return noop, fmt.Errorf("tracing: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(o.sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
