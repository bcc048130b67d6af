package mediator

import (
	"context"
	"iter"
	"reflect"
)

var _ Sender = (*Dispatcher)(nil)

// Dispatcher is the Sender implementation. It resolves the handler and the
// pipeline behaviors of each request from a Resolver and caches what it
// derives from request types.
//
// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	resolver Resolver
	cache    *Cache
	hooks    hooks
}

// NewDispatcher creates a Dispatcher resolving handlers from r.
func NewDispatcher(r Resolver, opts ...Option) *Dispatcher {
	cfg := newConfig(opts)
	return newDispatcher(r, cfg)
}

func newDispatcher(r Resolver, cfg config) *Dispatcher {
	return &Dispatcher{resolver: r, cache: cfg.cache, hooks: cfg.hooks}
}

func (d *Dispatcher) dispatcher() *Dispatcher { return d }

type dispatcherProvider interface {
	dispatcher() *Dispatcher
}

// resolveHandler resolves the single handler for c.
func (d *Dispatcher) resolveHandler(ctx context.Context, c Contract) (any, error) {
	instance, ok, err := d.resolver.ResolveOne(c)
	if err != nil {
		return nil, err
	}
	if !ok || isNil(instance) {
		d.hooks.noHandler(ctx, c)
		return nil, &NoHandlerError{Contract: c}
	}
	return instance, nil
}

// SendAny implements Sender. The response type is read from the request's
// Returns marker; a value without one fails with ErrMalformedRequest.
func (d *Dispatcher) SendAny(ctx context.Context, req any) (any, error) {
	if isNil(req) {
		return nil, nilArgument("request")
	}
	decl, ok := req.(responseDeclarer)
	if !ok {
		return nil, malformed(req, "a response type")
	}

	typ := reflect.TypeOf(req)
	meta := d.cache.request(typ, func() *requestMetadata {
		shape := decl.responseShape()
		return newRequestMetadata(typ, shape.typ, shape.wrapper.(requestWrapper))
	})
	return meta.wrapper.handle(ctx, d, meta, req)
}

// CreateStreamAny implements Sender. The element type is read from the
// request's Yields marker; a value without one fails with
// ErrMalformedRequest. Elements are passed through one by one as they are
// produced.
func (d *Dispatcher) CreateStreamAny(ctx context.Context, req any) (iter.Seq2[any, error], error) {
	if isNil(req) {
		return nil, nilArgument("stream request")
	}
	decl, ok := req.(elementDeclarer)
	if !ok {
		return nil, malformed(req, "an element type")
	}

	typ := reflect.TypeOf(req)
	meta := d.cache.stream(typ, func() *streamMetadata {
		shape := decl.elementShape()
		return newStreamMetadata(typ, shape.typ, shape.wrapper.(streamWrapper))
	})
	return meta.wrapper.open(ctx, d, meta, req)
}

// Send sends req to its handler and returns the response.
//
// The response type must be given explicitly; the request type is inferred:
//
//	greeting, err := mediator.Send[string](ctx, m, Echo{Text: "hi"})
//
// When s is a Dispatcher (or a Router) and req's dynamic type is Q, the
// whole dispatch is statically typed. Otherwise Send goes through
// s.SendAny and converts the response back to R.
func Send[R any, Q Request[R]](ctx context.Context, s Sender, req Q) (R, error) {
	var zero R
	if isNil(req) {
		return zero, nilArgument("request")
	}

	p, ok := s.(dispatcherProvider)
	if !ok || reflect.TypeOf(req) != reflect.TypeFor[Q]() {
		out, err := s.SendAny(ctx, req)
		if err != nil {
			r, _ := out.(R)
			return r, err
		}
		return cast[R](out)
	}

	d := p.dispatcher()
	meta := d.cache.request(reflect.TypeFor[Q](), func() *requestMetadata {
		return newRequestMetadata(reflect.TypeFor[Q](), reflect.TypeFor[R](), typedRequest[R, Q]{})
	})
	if _, typed := meta.wrapper.(typedRequest[R, Q]); !typed {
		out, err := meta.wrapper.handle(ctx, d, meta, req)
		if err != nil {
			return zero, err
		}
		return cast[R](out)
	}
	return dispatchRequest[R, Q](ctx, d, meta, req)
}

// SendVoid sends a request that declares no response.
//
//	err := mediator.SendVoid(ctx, m, DeleteUser{ID: id})
func SendVoid[Q Request[Unit]](ctx context.Context, s Sender, req Q) error {
	_, err := Send[Unit](ctx, s, req)
	return err
}

// CreateStream opens the stream of elements produced by req's handler.
//
//	seq, err := mediator.CreateStream[int](ctx, m, Count{N: 3})
//	if err != nil {
//	    return err
//	}
//	for n, err := range seq {
//	    ...
//	}
//
// The sequence is lazy: the handler runs when iteration starts and produces
// only as many elements as are pulled. When ctx is canceled no further
// element is delivered; the last pair carries ctx.Err().
func CreateStream[E any, Q StreamRequest[E]](ctx context.Context, s Sender, req Q) (iter.Seq2[E, error], error) {
	if isNil(req) {
		return nil, nilArgument("stream request")
	}

	p, ok := s.(dispatcherProvider)
	if !ok || reflect.TypeOf(req) != reflect.TypeFor[Q]() {
		seq, err := s.CreateStreamAny(ctx, req)
		if err != nil {
			return nil, err
		}
		return retypeSeq[E](seq), nil
	}

	d := p.dispatcher()
	meta := d.cache.stream(reflect.TypeFor[Q](), func() *streamMetadata {
		return newStreamMetadata(reflect.TypeFor[Q](), reflect.TypeFor[E](), typedStream[E, Q]{})
	})
	if _, typed := meta.wrapper.(typedStream[E, Q]); !typed {
		seq, err := meta.wrapper.open(ctx, d, meta, req)
		if err != nil {
			return nil, err
		}
		return retypeSeq[E](seq), nil
	}
	return openStream[E, Q](ctx, d, meta, req)
}
