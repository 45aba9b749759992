//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package trace provides OpenTelemetry trace bootstrap for parley.
package trace

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentName = "github.com/parley-go/parley"

const defaultGRPCEndpoint = "localhost:4317"

// Tracer is the tracer used across parley. It is a no-op until Start is
// called or a global tracer provider is installed.
var Tracer trace.Tracer = otel.Tracer(instrumentName)

// Option configures the trace bootstrap.
type Option func(*options)

type options struct {
	endpoint    string
	serviceName string
}

// WithEndpoint sets the OTLP gRPC collector endpoint, overriding the
// OTEL_EXPORTER_OTLP_TRACES_ENDPOINT and OTEL_EXPORTER_OTLP_ENDPOINT
// environment variables.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithServiceName sets the reported service name.
func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// Start configures the global tracer provider with an OTLP gRPC exporter
// and returns a cleanup function that flushes and shuts the provider down.
func Start(ctx context.Context, opts ...Option) (func() error, error) {
	o := options{serviceName: "parley"}
	for _, opt := range opts {
		opt(&o)
	}
	endpoint := o.endpoint
	if endpoint == "" {
		endpoint = tracesEndpoint()
	}

	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(o.serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer(instrumentName)

	return func() error {
		return provider.Shutdown(context.Background())
	}, nil
}

// tracesEndpoint resolves the OTLP/gRPC collector endpoint. The
// traces-specific environment variable has precedence over the generic one;
// a built-in default applies when neither is set.
func tracesEndpoint() string {
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); ep != "" {
		return ep
	}
	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		return ep
	}
	return defaultGRPCEndpoint
}
