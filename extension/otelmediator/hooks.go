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

// Hooks returns mediator options that open a span for every dispatch (sends,
// streams and publishes) and record its duration.
//
// The span is started in OnDispatch and ended by the matching OnSuccess or
// OnFailure call. For streams it stays open until iteration ends.
//
//	hooks, err := otelmediator.Hooks(otelmediator.WithTracerProvider(tp))
//	if err != nil { ... }
//	m := mediator.New(c, hooks...)
func Hooks(opts ...Option) ([]mediator.Option, error) {
	cfg := newConfig(opts...)
	tracer := cfg.tracer()

	duration, err := cfg.meter().Float64Histogram(
		DispatchDurationMetric,
		metric.WithUnit("ms"),
		metric.WithDescription("Duration in milliseconds of mediator dispatches, hooks included."),
	)
	if err != nil {
		return nil, fmt.Errorf("otelmediator.Hooks: failed to register metric: %w", err)
	}

	record := func(ctx context.Context, c mediator.Contract, failed bool, d time.Duration) {
		attributes := append(contractAttributes(c), ErrorAttribute.Bool(failed))
		duration.Record(ctx, milliseconds(d), metric.WithAttributes(attributes...))
	}

	return []mediator.Option{
		mediator.WithOnDispatch(func(ctx context.Context, c mediator.Contract) context.Context {
			ctx, _ = tracer.Start(ctx, DispatchSpanName, trace.WithAttributes(contractAttributes(c)...))
			return ctx
		}),
		mediator.WithOnSuccess(func(ctx context.Context, c mediator.Contract, d time.Duration) {
			record(ctx, c, false, d)
			trace.SpanFromContext(ctx).End()
		}),
		mediator.WithOnFailure(func(ctx context.Context, c mediator.Contract, err error, d time.Duration) {
			record(ctx, c, true, d)

			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
		}),
	}, nil
}
