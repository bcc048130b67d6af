package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/bjaus/mediator"
)

var (
	// ErrNoSource is returned when no source recognizes a message and no
	// OnNoSource hook is configured.
	ErrNoSource = errors.New("no source matched message")

	// ErrUnknownKey is returned when no message type is bound to the parsed
	// key and no OnUnknownKey hook is configured.
	ErrUnknownKey = errors.New("no message type bound to key")
)

// Validator checks a decoded message before it is dispatched.
// validation.Behavior from extension/validation implements it.
type Validator interface {
	Check(ctx context.Context, msg any) error
}

// validatable is implemented by messages that check themselves, in the
// style of ozzo-validation.
type validatable interface {
	Validate() error
}

type shape uint8

const (
	shapeNotification shape = iota
	shapeRequest
	shapeStream
)

// binding decodes the payloads of one routing key into its message type.
type binding struct {
	typ    reflect.Type
	shape  shape
	decode func(payload json.RawMessage) (any, error)
	check  func(v any) error
}

// group holds sources that share an inspector.
type group struct {
	inspector Inspector
	sources   []Source
}

type position struct {
	group, source int
}

// Router turns raw transport messages into mediator messages: it detects the
// envelope, decodes the payload into the type bound to its routing key and
// hands the result to a mediator.Mediator.
//
// Usage:
//  1. Create a router with New
//  2. Add sources with AddSource (or AddGroup for custom inspectors)
//  3. Bind routing keys to message types with Bind
//  4. Process messages with Process
//
// Router is safe for concurrent use after configuration. Do not call
// AddSource, AddGroup or Bind after calling Process.
type Router struct {
	mediator  mediator.Mediator
	groups    []group // groups[0] holds the sources added with AddSource
	bindings  map[string]binding
	validator Validator
	hooks     hooks

	// Adaptive ordering: try the last matching source first.
	lastMatch atomic.Pointer[position]
}

// New creates a Router forwarding decoded messages to m.
//
// Example:
//
//	r := ingress.New(m, ingress.WithValidator(validation.NewBehavior()))
//	r.AddSource(ingress.EnvelopeSource("eventbridge", "detail-type", "detail"))
//	ingress.Bind[UserCreated](r, "UserCreated")
func New(m mediator.Mediator, opts ...Option) *Router {
	r := &Router{
		mediator: m,
		groups:   []group{{inspector: JSONInspector()}},
		bindings: make(map[string]binding),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddSource registers a source with the default inspector. Sources are
// matched using their Discriminator, in registration order.
func (r *Router) AddSource(s Source) {
	r.groups[0].sources = append(r.groups[0].sources, s)
}

// AddGroup registers sources with a custom inspector, for envelopes that are
// not JSON. Groups are checked after the default sources, in registration
// order.
func (r *Router) AddGroup(inspector Inspector, sources ...Source) {
	r.groups = append(r.groups, group{inspector: inspector, sources: sources})
}

// Bind maps a routing key to the message type T. Payloads for key are
// decoded from JSON into T and validated, by the Router's Validator when one
// is set and otherwise by T's (or *T's) Validate() error method. What happens next depends on T:
//   - T embeds mediator.Returns: it is sent and the response is replied
//   - T embeds mediator.Yields: the stream is drained and replied as an array
//   - anything else is published as a notification
//
// This is a package-level function (not a method) because methods cannot
// have type parameters of their own. Binding a key again replaces the
// previous type.
//
// Example:
//
//	ingress.Bind[CreateUser](r, "user/create")
//	ingress.Bind[UserCreated](r, "user/created")
func Bind[T any](r *Router, key string) {
	b := binding{typ: reflect.TypeFor[T](), shape: shapeNotification, decode: decode[T], check: selfCheck[T]}

	probe := sample[T]()
	if _, ok := mediator.ResponseType(probe); ok {
		b.shape = shapeRequest
	} else if _, ok := mediator.ElementType(probe); ok {
		b.shape = shapeStream
	}
	r.bindings[key] = b
}

// Bound returns the message type bound to key.
func (r *Router) Bound(key string) (reflect.Type, bool) {
	b, ok := r.bindings[key]
	return b.typ, ok
}

// sample returns a non-nil value of T for marker checks.
func sample[T any]() any {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Pointer {
		return reflect.New(typ.Elem()).Interface()
	}
	var zero T
	return zero
}

func decode[T any](payload json.RawMessage) (any, error) {
	var v T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
	}
	if rv := reflect.ValueOf(&v).Elem(); rv.Kind() == reflect.Pointer && rv.IsNil() {
		rv.Set(reflect.New(rv.Type().Elem()))
	}
	return v, nil
}

// selfCheck calls Validate on v when T or *T has it.
func selfCheck[T any](v any) error {
	t := v.(T)
	if val, ok := any(t).(validatable); ok {
		return val.Validate()
	}
	if val, ok := any(&t).(validatable); ok {
		return val.Validate()
	}
	return nil
}

func (r *Router) validate(ctx context.Context, b binding, v any) error {
	if r.validator != nil {
		return r.validator.Check(ctx, v)
	}
	return b.check(v)
}

// Process parses the raw message, decodes it and hands it to the mediator.
//
// The processing flow:
//  1. Use discriminators to find a matching source
//  2. Parse the message with the matched source
//  3. Look up the message type bound to the routing key
//  4. Unmarshal and validate the payload
//  5. Send, stream or publish it through the mediator
//  6. Report the outcome through the message's Replier, if any
//
// Messages rejected in steps 1 to 4 go through the matching error hooks.
//
// Example:
//
//	// In an SQS consumer
//	func (s *Subscriber) ProcessMessage(ctx context.Context, msg sqs.Message) error {
//	    return s.router.Process(ctx, []byte(*msg.Body))
//	}
func (r *Router) Process(ctx context.Context, raw []byte) error {
	source := r.match(raw)
	if source == nil {
		return r.handleNoSource(ctx, raw)
	}

	msg, err := source.Parse(raw)
	if err != nil {
		return r.handleParseError(ctx, source.Name(), err)
	}

	b, bound := r.bindings[msg.Key]
	rt := Route{Source: source.Name(), Key: msg.Key, Message: b.typ}

	ctx = r.callOnParse(ctx, source, rt)
	if !bound {
		return r.handleUnknownKey(ctx, source, rt)
	}

	v, err := b.decode(msg.Payload)
	if err != nil {
		return reject(ctx, msg.Replier, r.handleUnmarshalError(ctx, source, rt, err))
	}
	if err := r.validate(ctx, b, v); err != nil {
		return reject(ctx, msg.Replier, r.handleValidationError(ctx, source, rt, err))
	}

	r.callOnDispatch(ctx, source, rt)

	start := time.Now()
	result, err := r.dispatch(ctx, b, v)
	r.callOnComplete(ctx, source, rt, err, time.Since(start))

	return reply(ctx, msg.Replier, result, err)
}

func (r *Router) dispatch(ctx context.Context, b binding, v any) (any, error) {
	switch b.shape {
	case shapeRequest:
		return r.mediator.SendAny(ctx, v)
	case shapeStream:
		seq, err := r.mediator.CreateStreamAny(ctx, v)
		if err != nil {
			return nil, err
		}
		elems := []any{}
		for e, err := range seq {
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return elems, nil
	default:
		return struct{}{}, r.mediator.PublishAny(ctx, v)
	}
}

// reject reports a message that was not dispatched to its Replier. Dropped
// messages (nil err) are not reported.
func reject(ctx context.Context, rep Replier, err error) error {
	if err == nil || rep == nil {
		return err
	}
	return rep.Fail(ctx, err)
}

func reply(ctx context.Context, rep Replier, result any, err error) error {
	if rep == nil {
		return err
	}
	if err != nil {
		return rep.Fail(ctx, err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return rep.Fail(ctx, fmt.Errorf("ingress: marshal result: %w", err))
	}
	return rep.Reply(ctx, out)
}

// inspection is the lazily computed view of one group's inspector.
type inspection struct {
	view View
	done bool
	ok   bool
}

// match finds a source whose discriminator matches the raw message, trying
// the last matching source first. Each inspector parses raw at most once.
func (r *Router) match(raw []byte) Source {
	views := make([]inspection, len(r.groups))
	view := func(g int) (View, bool) {
		in := &views[g]
		if !in.done {
			v, err := r.groups[g].inspector.Inspect(raw)
			*in = inspection{view: v, done: true, ok: err == nil}
		}
		return in.view, in.ok
	}

	if last := r.lastMatch.Load(); last != nil {
		if v, ok := view(last.group); ok {
			if src := r.groups[last.group].sources[last.source]; src.Discriminator().Match(v) {
				return src
			}
		}
	}

	for gi, g := range r.groups {
		if len(g.sources) == 0 {
			continue
		}
		v, ok := view(gi)
		if !ok {
			continue
		}
		for si, src := range g.sources {
			if src.Discriminator().Match(v) {
				r.lastMatch.Store(&position{group: gi, source: si})
				return src
			}
		}
	}
	return nil
}

func (r *Router) callOnParse(ctx context.Context, source Source, rt Route) context.Context {
	for _, fn := range r.hooks.parse {
		ctx = fn(ctx, rt)
	}
	if h, ok := source.(OnParseHook); ok {
		ctx = h.OnParse(ctx, rt)
	}
	return ctx
}

func (r *Router) callOnDispatch(ctx context.Context, source Source, rt Route) {
	for _, fn := range r.hooks.dispatch {
		fn(ctx, rt)
	}
	if h, ok := source.(OnDispatchHook); ok {
		h.OnDispatch(ctx, rt)
	}
}

func (r *Router) callOnComplete(ctx context.Context, source Source, rt Route, err error, d time.Duration) {
	if err != nil {
		for _, fn := range r.hooks.failure {
			fn(ctx, rt, err, d)
		}
		if h, ok := source.(OnFailureHook); ok {
			h.OnFailure(ctx, rt, err, d)
		}
		return
	}
	for _, fn := range r.hooks.success {
		fn(ctx, rt, d)
	}
	if h, ok := source.(OnSuccessHook); ok {
		h.OnSuccess(ctx, rt, d)
	}
}

func (r *Router) handleNoSource(ctx context.Context, raw []byte) error {
	return decide(r.hooks.noSource,
		func(fn OnNoSourceFunc) error { return fn(ctx, raw) },
		nil,
		fmt.Errorf("ingress: %w", ErrNoSource),
	)
}

func (r *Router) handleParseError(ctx context.Context, name string, err error) error {
	return decide(r.hooks.parseError,
		func(fn OnParseErrorFunc) error { return fn(ctx, name, err) },
		nil,
		fmt.Errorf("ingress: parse failed for source %s: %w", name, err),
	)
}

func (r *Router) handleUnknownKey(ctx context.Context, source Source, rt Route) error {
	var local func() error
	if h, ok := source.(OnUnknownKeyHook); ok {
		local = func() error { return h.OnUnknownKey(ctx, rt) }
	}
	return decide(r.hooks.unknownKey,
		func(fn OnUnknownKeyFunc) error { return fn(ctx, rt) },
		local,
		fmt.Errorf("ingress: %w: %s", ErrUnknownKey, rt.Key),
	)
}

func (r *Router) handleUnmarshalError(ctx context.Context, source Source, rt Route, err error) error {
	var local func() error
	if h, ok := source.(OnUnmarshalErrorHook); ok {
		local = func() error { return h.OnUnmarshalError(ctx, rt, err) }
	}
	return decide(r.hooks.unmarshalError,
		func(fn OnUnmarshalErrorFunc) error { return fn(ctx, rt, err) },
		local,
		fmt.Errorf("ingress: unmarshal %s payload: %w", rt.Key, err),
	)
}

func (r *Router) handleValidationError(ctx context.Context, source Source, rt Route, err error) error {
	var local func() error
	if h, ok := source.(OnValidationErrorHook); ok {
		local = func() error { return h.OnValidationError(ctx, rt, err) }
	}
	return decide(r.hooks.validationError,
		func(fn OnValidationErrorFunc) error { return fn(ctx, rt, err) },
		local,
		fmt.Errorf("ingress: validate %s payload: %w", rt.Key, err),
	)
}
