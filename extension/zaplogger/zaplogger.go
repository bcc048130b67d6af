// Package zaplogger logs mediator traffic with a zap.Logger.
package zaplogger

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/bjaus/mediator"
	"github.com/bjaus/mediator/extension/correlation"
)

var _ mediator.AnyBehavior = &Logger{}

// Logger is a zap wrapper that logs requests as a mediator.AnyBehavior and
// every dispatch through hook options.
type Logger zap.Logger

// Wrap wraps a zap.Logger into a zaplogger.Logger instance.
func Wrap(l *zap.Logger) *Logger {
	return (*Logger)(l)
}

func (l *Logger) with(ctx context.Context) *zap.Logger {
	return (*zap.Logger)(l).With(contextFields(ctx)...)
}

// contextFields returns the correlation fields carried by ctx.
func contextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id, ok := correlation.CorrelationID(ctx); ok {
		fields = append(fields, zap.String("correlation_id", id))
	}
	if id, ok := correlation.CausationID(ctx); ok {
		fields = append(fields, zap.String("causation_id", id))
	}
	if id, ok := correlation.RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	return fields
}

// Handle implements mediator.AnyBehavior. It logs the start of each request
// at debug level and its outcome at info or error level.
func (l *Logger) Handle(ctx context.Context, req any, next mediator.Next[any]) (any, error) {
	log := l.with(ctx).With(zap.Stringer("request", reflect.TypeOf(req)))
	log.Debug("request started")

	start := time.Now()
	out, err := next(ctx)
	took := zap.Duration("duration", time.Since(start))

	if err != nil {
		log.Error("request failed", zap.Error(err), took)
		return out, err
	}

	log.Info("request handled", took)
	return out, nil
}

// Options returns mediator options logging every dispatch outcome and every
// request without a handler.
//
//	m := mediator.New(c, zaplogger.Wrap(logger).Options()...)
func (l *Logger) Options() []mediator.Option {
	return []mediator.Option{
		mediator.WithOnSuccess(func(ctx context.Context, c mediator.Contract, d time.Duration) {
			l.with(ctx).Debug("dispatch succeeded", zap.Stringer("contract", c), zap.Duration("duration", d))
		}),
		mediator.WithOnFailure(func(ctx context.Context, c mediator.Contract, err error, d time.Duration) {
			l.with(ctx).Error("dispatch failed", zap.Stringer("contract", c), zap.Error(err), zap.Duration("duration", d))
		}),
		mediator.WithOnNoHandler(func(ctx context.Context, c mediator.Contract) {
			l.with(ctx).Warn("no handler registered", zap.Stringer("contract", c))
		}),
	}
}
