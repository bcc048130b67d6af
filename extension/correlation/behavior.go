package correlation

import (
	"context"

	"github.com/bjaus/mediator"
)

var _ mediator.AnyBehavior = (*Behavior)(nil)

// Behavior assigns IDs to every request that passes through the pipeline.
//
// A request arriving without a correlation ID starts a new correlation; the
// causation ID of the caller is reused for it when present. Each request also
// gets its own ID, available through RequestID, which becomes the causation
// ID of anything its handler sends.
type Behavior struct {
	generate Generator
}

// Option configures a Behavior.
type Option func(*Behavior)

// WithGenerator sets how IDs are produced. The default is UUID.
func WithGenerator(g Generator) Option {
	return func(b *Behavior) {
		b.generate = g
	}
}

// NewBehavior returns a Behavior configured by opts.
func NewBehavior(opts ...Option) *Behavior {
	b := &Behavior{generate: UUID}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle implements mediator.AnyBehavior.
func (b *Behavior) Handle(ctx context.Context, req any, next mediator.Next[any]) (any, error) {
	ctx = b.ensure(ctx)

	if parent, ok := RequestID(ctx); ok {
		ctx = WithCausationID(ctx, parent)
	}
	ctx = context.WithValue(ctx, requestCtxKey{}, b.generate())

	return next(ctx)
}

// OnDispatch is a mediator.OnDispatchFunc that makes sure every dispatch,
// streams and notifications included, runs with a correlation ID.
//
//	m := mediator.New(c, mediator.WithOnDispatch(b.OnDispatch))
func (b *Behavior) OnDispatch(ctx context.Context, _ mediator.Contract) context.Context {
	return b.ensure(ctx)
}

func (b *Behavior) ensure(ctx context.Context) context.Context {
	if _, ok := CorrelationID(ctx); ok {
		return ctx
	}
	if id, ok := CausationID(ctx); ok {
		return WithCorrelationID(ctx, id)
	}
	return WithCorrelationID(ctx, b.generate())
}
