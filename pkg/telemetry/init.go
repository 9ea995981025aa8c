// Package telemetry configures tracing and run metrics.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// RunAttributes describe the reconciliation run a trace belongs to.
type RunAttributes struct {
	Service string
	Version string
	Region  string
	DryRun  bool
	Workers int
	// Endpoint overrides OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint string
}

// Run attribute keys.
const (
	DryRunKey  = attribute.Key("provtag.dry_run")
	WorkersKey = attribute.Key("provtag.workers")
)

// Init installs a global tracer provider for one run. Without an endpoint
// spans are recorded and discarded.
func Init(ctx context.Context, run RunAttributes) (func(context.Context) error, error) {
	exporter, err := newExporter(ctx, run.Endpoint)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(runResource(run)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}

// runResource is not merged with resource.Default: its schema URL tracks the
// SDK release and would conflict with the pinned semconv version.
func runResource(run RunAttributes) *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(run.Service),
		semconv.ServiceVersion(run.Version),
		semconv.CloudProviderAWS,
		DryRunKey.Bool(run.DryRun),
		WorkersKey.Int(run.Workers),
	}
	if run.Region != "" {
		attrs = append(attrs, semconv.CloudRegion(run.Region))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func newExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(io.Discard))
		if err != nil {
			return nil, fmt.Errorf("failed to create discard exporter: %w", err)
		}
		return exp, nil
	}
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter for %s: %w", endpoint, err)
	}
	return exp, nil
}
