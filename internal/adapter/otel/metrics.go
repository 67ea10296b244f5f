package otel

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tbd"

// Metrics holds the task log instruments.
type Metrics struct {
	TasksScheduled   metric.Int64Counter
	TasksPooled      metric.Int64Counter
	TasksCompleted   metric.Int64Counter
	TasksPromoted    metric.Int64Counter
	Activations      metric.Int64Counter
	SnapshotDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksScheduled, err = meter.Int64Counter("tbd.tasks.scheduled",
		metric.WithDescription("Active tasks added directly"))
	if err != nil {
		return nil, err
	}

	m.TasksPooled, err = meter.Int64Counter("tbd.tasks.pooled",
		metric.WithDescription("Tasks added to the pool"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("tbd.tasks.completed",
		metric.WithDescription("Active tasks marked done"))
	if err != nil {
		return nil, err
	}

	m.TasksPromoted, err = meter.Int64Counter("tbd.tasks.promoted",
		metric.WithDescription("Pooled tasks promoted by activation"))
	if err != nil {
		return nil, err
	}

	m.Activations, err = meter.Int64Counter("tbd.activations",
		metric.WithDescription("Activation runs, including those that promoted nothing"))
	if err != nil {
		return nil, err
	}

	m.SnapshotDuration, err = meter.Float64Histogram("tbd.snapshot.duration_seconds",
		metric.WithDescription("Snapshot save/load duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// SnapshotAttrs labels a snapshot duration sample.
func SnapshotAttrs(op, backend string, ok bool) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("snapshot.op", op),
		attribute.String("snapshot.backend", backend),
		attribute.Bool("snapshot.ok", ok),
	)
}
