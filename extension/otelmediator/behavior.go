package otelmediator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/bjaus/mediator"
)

var _ mediator.AnyBehavior = (*Behavior)(nil)

// Behavior is a mediator.AnyBehavior that traces and measures every request
// passing through the pipeline.
//
// Register it first to have its span cover the other behaviors:
//
//	b, err := otelmediator.NewBehavior()
//	if err != nil { ... }
//	mediator.RegisterAnyBehavior(c, b)
type Behavior struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewBehavior returns a Behavior using the providers in opts.
//
// An error is returned if metrics could not be registered.
func NewBehavior(opts ...Option) (*Behavior, error) {
	cfg := newConfig(opts...)

	b := &Behavior{tracer: cfg.tracer()}
	if err := b.registerMetrics(cfg.meter()); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Behavior) registerMetrics(meter metric.Meter) error {
	var err error

	if b.requests, err = meter.Int64Counter(
		RequestsMetric,
		metric.WithDescription("Number of requests sent through the mediator pipeline."),
	); err != nil {
		return fmt.Errorf("otelmediator.NewBehavior: failed to register metric: %w", err)
	}

	if b.duration, err = meter.Float64Histogram(
		RequestDurationMetric,
		metric.WithUnit("ms"),
		metric.WithDescription("Duration in milliseconds of requests sent through the mediator pipeline."),
	); err != nil {
		return fmt.Errorf("otelmediator.NewBehavior: failed to register metric: %w", err)
	}

	return nil
}

// Handle implements mediator.AnyBehavior.
func (b *Behavior) Handle(ctx context.Context, req any, next mediator.Next[any]) (result any, err error) {
	attributes := requestAttributes(req)

	ctx, span := b.tracer.Start(ctx, RequestSpanName, trace.WithAttributes(attributes...))
	start := time.Now()

	defer func() {
		attributes := append(attributes, ErrorAttribute.Bool(err != nil))
		set := metric.WithAttributes(attributes...)

		b.requests.Add(ctx, 1, set)
		b.duration.Record(ctx, milliseconds(time.Since(start)), set)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	return next(ctx)
}
