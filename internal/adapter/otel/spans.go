package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tbd"

// StartSnapshotSpan starts a span around a snapshot save or load.
func StartSnapshotSpan(ctx context.Context, op, backend, location string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "snapshot."+op,
		trace.WithAttributes(
			attribute.String("snapshot.backend", backend),
			attribute.String("snapshot.location", location),
		),
	)
}

// StartActivationSpan starts a span for one activation run.
func StartActivationSpan(ctx context.Context, pooled int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "activate",
		trace.WithAttributes(attribute.Int("pool.size", pooled)),
	)
}
