// Package exporters selects the telemetry exporters behind the observe
// package's tracing and metrics configuration.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknownExporter indicates an exporter name outside the supported set.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrEndpointNotConfigured indicates a collector-bound exporter was chosen
	// without an endpoint in the environment.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")
)

// endpointFromEnv returns the first non-empty value among the given
// environment variables.
func endpointFromEnv(vars ...string) string {
	for _, v := range vars {
		if e := os.Getenv(v); e != "" {
			return e
		}
	}
	return ""
}

// NewTracingExporter creates a trace span exporter based on the exporter name.
// Supported exporters: stdout, otlp, jaeger, none
func NewTracingExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))

	case "otlp":
		if endpointFromEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") == "" {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ErrEndpointNotConfigured)
		}
		return otlptracegrpc.New(ctx)

	case "jaeger":
		// Jaeger ingests OTLP natively; only the endpoint differs.
		if endpointFromEnv("OTEL_EXPORTER_JAEGER_ENDPOINT") == "" {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_JAEGER_ENDPOINT", ErrEndpointNotConfigured)
		}
		return otlptracegrpc.New(ctx)

	case "none", "":
		// A discard exporter keeps the provider wiring uniform.
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader creates a metrics reader based on the exporter name.
// Supported exporters: stdout, otlp, prometheus, none
func NewMetricsReader(ctx context.Context, name string) (sdkmetric.Reader, error) {
	switch name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "otlp":
		if endpointFromEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") == "" {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ErrEndpointNotConfigured)
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "prometheus":
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		return exp, nil

	case "none", "":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}
