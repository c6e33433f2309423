// Package trace wires one OTel span per pipeline stage (pipeline.build,
// pipeline.flash, ...) so a tracing backend can reconstruct cross-stage
// timing that the Result document's duration_ms fields only give per-run.
// Exporting is opt-in: with no OTLP endpoint configured, span creation is a
// harmless no-op (the default, embedded, SDK-less noop tracer).
package trace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/GurkeX/hil-host-core/internal/pipeline"

// Shutdown flushes and releases the tracer provider installed by Configure.
// A no-op when tracing was never configured.
type Shutdown func(ctx context.Context) error

// Configure installs a global TracerProvider exporting to otlpEndpoint over
// gRPC. An empty endpoint leaves the default no-op global provider in
// place, so callers can unconditionally call Configure and StartStage.
func Configure(ctx context.Context, otlpEndpoint string) (Shutdown, error) {
	if otlpEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", "hilctl"),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func(shutdownCtx context.Context) error {
		return tp.Shutdown(shutdownCtx)
	}, nil
}

// StartStage opens a span named "pipeline.<stage>" and returns a func that
// closes it, recording the status and duration and, when err is non-nil,
// marking the span as errored. Callers defer the returned func.
func StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, func(status string, err error)) {
	tracer := otel.Tracer(tracerName)
	spanCtx, span := tracer.Start(ctx, "pipeline."+stage, trace.WithAttributes(attrs...))
	start := time.Now()

	return spanCtx, func(status string, err error) {
		span.SetAttributes(
			attribute.String("hil.stage.status", status),
			attribute.Int64("hil.stage.duration_ms", time.Since(start).Milliseconds()),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
