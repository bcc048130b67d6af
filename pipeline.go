package mediator

import (
	"context"
	"iter"
	"reflect"
	"time"
)

// requestWrapper dispatches a request whose static type was erased. The
// wrapper stored in the Cache is built once per request type: a typed
// wrapper when the type was first seen through Send, a reflective one when
// it was first seen through SendAny.
type requestWrapper interface {
	handle(ctx context.Context, d *Dispatcher, meta *requestMetadata, req any) (any, error)
}

// streamWrapper is the stream request counterpart of requestWrapper.
type streamWrapper interface {
	open(ctx context.Context, d *Dispatcher, meta *streamMetadata, req any) (iter.Seq2[any, error], error)
}

// step is one behavior bound to the request being dispatched.
type step[R any] func(ctx context.Context, next Next[R]) (R, error)

// chain folds steps around terminal so that steps[0] is the outermost: it
// runs first and returns last.
func chain[R any](terminal Next[R], steps []step[R]) Next[R] {
	next := terminal
	for i := len(steps) - 1; i >= 0; i-- {
		s, inner := steps[i], next
		next = func(ctx context.Context) (R, error) {
			return s(ctx, inner)
		}
	}
	return next
}

// anyStep binds an AnyBehavior into a typed pipeline.
func anyStep[R any](b AnyBehavior, req any) step[R] {
	return func(ctx context.Context, next Next[R]) (R, error) {
		out, err := b.Handle(ctx, req, func(ctx context.Context) (any, error) {
			return next(ctx)
		})
		if err != nil {
			r, _ := out.(R)
			return r, err
		}
		return cast[R](out)
	}
}

type typedRequest[R any, Q Request[R]] struct{}

func (typedRequest[R, Q]) handle(ctx context.Context, d *Dispatcher, meta *requestMetadata, req any) (any, error) {
	return dispatchRequest[R, Q](ctx, d, meta, req.(Q))
}

// dispatchRequest runs the pipeline of a request whose type is known
// statically.
func dispatchRequest[R any, Q Request[R]](ctx context.Context, d *Dispatcher, meta *requestMetadata, req Q) (R, error) {
	var zero R

	instance, err := d.resolveHandler(ctx, meta.handler)
	if err != nil {
		return zero, err
	}
	h, ok := instance.(Handler[Q, R])
	if !ok {
		return zero, incompatible(meta.handler, instance)
	}

	behaviors, err := d.resolver.ResolveAll(meta.behavior)
	if err != nil {
		return zero, err
	}

	steps := make([]step[R], 0, len(behaviors))
	for _, b := range behaviors {
		switch b := b.(type) {
		case Behavior[Q, R]:
			steps = append(steps, func(ctx context.Context, next Next[R]) (R, error) {
				return b.Handle(ctx, req, next)
			})
		case AnyBehavior:
			steps = append(steps, anyStep[R](b, req))
		default:
			return zero, incompatible(meta.behavior, b)
		}
	}

	terminal := func(ctx context.Context) (R, error) {
		return h.Handle(ctx, req)
	}
	return observe(ctx, &d.hooks, meta.handler, chain(terminal, steps))
}

type erasedRequest[R any] struct{}

func (erasedRequest[R]) handle(ctx context.Context, d *Dispatcher, meta *requestMetadata, req any) (any, error) {
	return dispatchErased[R](ctx, d, meta, req)
}

// dispatchErased runs the pipeline of a request known only by its runtime
// type. The response type R comes from the request's Returns marker; the
// handler and typed behaviors are invoked through reflection.
func dispatchErased[R any](ctx context.Context, d *Dispatcher, meta *requestMetadata, req any) (R, error) {
	var zero R

	instance, err := d.resolveHandler(ctx, meta.handler)
	if err != nil {
		return zero, err
	}
	handle, err := bindMethod(instance, meta.handler,
		[]reflect.Type{contextType, meta.request},
		[]reflect.Type{meta.response, errorType})
	if err != nil {
		return zero, err
	}

	behaviors, err := d.resolver.ResolveAll(meta.behavior)
	if err != nil {
		return zero, err
	}

	reqValue := reflect.ValueOf(req)
	nextType := reflect.TypeFor[Next[R]]()

	steps := make([]step[R], 0, len(behaviors))
	for _, b := range behaviors {
		if ab, ok := b.(AnyBehavior); ok {
			steps = append(steps, anyStep[R](ab, req))
			continue
		}
		m, err := bindMethod(b, meta.behavior,
			[]reflect.Type{contextType, meta.request, nextType},
			[]reflect.Type{meta.response, errorType})
		if err != nil {
			return zero, err
		}
		steps = append(steps, func(ctx context.Context, next Next[R]) (R, error) {
			return results[R](m.Call([]reflect.Value{ctxValue(ctx), reqValue, reflect.ValueOf(next)}))
		})
	}

	terminal := func(ctx context.Context) (R, error) {
		return results[R](handle.Call([]reflect.Value{ctxValue(ctx), reqValue}))
	}
	return observe(ctx, &d.hooks, meta.handler, chain(terminal, steps))
}

type typedStream[E any, Q StreamRequest[E]] struct{}

func (typedStream[E, Q]) open(ctx context.Context, d *Dispatcher, meta *streamMetadata, req any) (iter.Seq2[any, error], error) {
	seq, err := openStream[E, Q](ctx, d, meta, req.(Q))
	if err != nil {
		return nil, err
	}
	return eraseSeq(seq), nil
}

func openStream[E any, Q StreamRequest[E]](ctx context.Context, d *Dispatcher, meta *streamMetadata, req Q) (iter.Seq2[E, error], error) {
	instance, err := d.resolveHandler(ctx, meta.handler)
	if err != nil {
		return nil, err
	}
	h, ok := instance.(StreamHandler[Q, E])
	if !ok {
		return nil, incompatible(meta.handler, instance)
	}
	return guardStream(ctx, &d.hooks, meta.handler, func(ctx context.Context) iter.Seq2[E, error] {
		return h.Handle(ctx, req)
	}), nil
}

type erasedStream[E any] struct{}

func (erasedStream[E]) open(ctx context.Context, d *Dispatcher, meta *streamMetadata, req any) (iter.Seq2[any, error], error) {
	instance, err := d.resolveHandler(ctx, meta.handler)
	if err != nil {
		return nil, err
	}
	handle, err := bindMethod(instance, meta.handler,
		[]reflect.Type{contextType, meta.request},
		[]reflect.Type{reflect.TypeFor[iter.Seq2[E, error]]()})
	if err != nil {
		return nil, err
	}

	reqValue := reflect.ValueOf(req)
	seq := guardStream(ctx, &d.hooks, meta.handler, func(ctx context.Context) iter.Seq2[E, error] {
		out := handle.Call([]reflect.Value{ctxValue(ctx), reqValue})
		s, _ := out[0].Interface().(iter.Seq2[E, error])
		return s
	})
	return eraseSeq(seq), nil
}

// guardStream defers calling the handler until the sequence is pulled and
// stops handing out elements once ctx is done. An element the handler
// produced after cancellation is dropped; the consumer receives ctx.Err()
// as the final pair instead.
func guardStream[E any](ctx context.Context, h *hooks, c Contract, produce func(context.Context) iter.Seq2[E, error]) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		var (
			zero E
			err  error
		)

		ctx := h.dispatch(ctx, c)
		start := time.Now()
		defer func() {
			h.complete(ctx, c, err, time.Since(start))
		}()

		if err = ctx.Err(); err != nil {
			yield(zero, err)
			return
		}

		seq := produce(ctx)
		if seq == nil {
			return
		}
		for e, herr := range seq {
			if cerr := ctx.Err(); cerr != nil {
				err = cerr
				yield(zero, cerr)
				return
			}
			if herr != nil {
				err = herr
			}
			if !yield(e, herr) {
				return
			}
		}
	}
}

// eraseSeq re-exposes a typed sequence element by element.
func eraseSeq[E any](seq iter.Seq2[E, error]) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for e, err := range seq {
			if !yield(e, err) {
				return
			}
		}
	}
}

// retypeSeq is the inverse of eraseSeq. An element of the wrong type ends
// the sequence with an ErrIncompatibleHandler error.
func retypeSeq[E any](seq iter.Seq2[any, error]) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		for v, err := range seq {
			e, cerr := cast[E](v)
			if cerr != nil {
				yield(e, cerr)
				return
			}
			if !yield(e, err) {
				return
			}
		}
	}
}
