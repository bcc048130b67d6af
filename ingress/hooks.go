package ingress

import (
	"context"
	"reflect"
	"time"
)

// Route describes one inbound message: the source that parsed it, its
// routing key and the message type bound to that key. Message is nil when
// the key is not bound.
type Route struct {
	Source  string
	Key     string
	Message reflect.Type
}

// OnParseFunc runs once a message has been parsed and its key looked up.
// The context it returns is used for the rest of the message, so this is
// the place to attach logging fields or trace spans.
type OnParseFunc func(ctx context.Context, rt Route) context.Context

// OnDispatchFunc runs right before the decoded message goes to the
// mediator.
type OnDispatchFunc func(ctx context.Context, rt Route)

// OnSuccessFunc runs when the mediator handled the message without error.
type OnSuccessFunc func(ctx context.Context, rt Route, duration time.Duration)

// OnFailureFunc runs when the mediator returned an error.
type OnFailureFunc func(ctx context.Context, rt Route, err error, duration time.Duration)

// OnNoSourceFunc decides what happens to a message no source recognizes:
// nil drops it, an error fails Process.
type OnNoSourceFunc func(ctx context.Context, raw []byte) error

// OnParseErrorFunc decides what happens when the matched source cannot
// parse the message: nil drops it, an error fails Process.
type OnParseErrorFunc func(ctx context.Context, source string, err error) error

// OnUnknownKeyFunc decides what happens to a key with no bound type:
// nil drops the message, an error fails Process.
type OnUnknownKeyFunc func(ctx context.Context, rt Route) error

// OnUnmarshalErrorFunc decides what happens to a payload that does not
// decode into the bound type: nil drops it, an error fails Process.
type OnUnmarshalErrorFunc func(ctx context.Context, rt Route, err error) error

// OnValidationErrorFunc decides what happens to a decoded message that
// fails validation: nil drops it, an error fails Process.
type OnValidationErrorFunc func(ctx context.Context, rt Route, err error) error

type hooks struct {
	parse           []OnParseFunc
	dispatch        []OnDispatchFunc
	success         []OnSuccessFunc
	failure         []OnFailureFunc
	noSource        []OnNoSourceFunc
	parseError      []OnParseErrorFunc
	unknownKey      []OnUnknownKeyFunc
	unmarshalError  []OnUnmarshalErrorFunc
	validationError []OnValidationErrorFunc
}

// Option configures a Router.
type Option func(*Router)

// WithInspector replaces JSONInspector for the sources added with
// AddSource.
func WithInspector(i Inspector) Option {
	return func(r *Router) {
		r.groups[0].inspector = i
	}
}

// WithValidator checks every decoded message with v instead of calling its
// Validate method. The extension/validation Behavior can be used here to
// get struct tag validation at the edge.
func WithValidator(v Validator) Option {
	return func(r *Router) {
		r.validator = v
	}
}

// WithOnParse appends a hook run after parsing. Each hook receives the
// context returned by the previous one.
//
// Example:
//
//	ingress.WithOnParse(func(ctx context.Context, rt ingress.Route) context.Context {
//	    return correlation.WithCausationID(ctx, rt.Source+":"+rt.Key)
//	})
func WithOnParse(fn OnParseFunc) Option {
	return func(r *Router) {
		r.hooks.parse = append(r.hooks.parse, fn)
	}
}

// WithOnDispatch appends a hook run before the mediator is called.
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(r *Router) {
		r.hooks.dispatch = append(r.hooks.dispatch, fn)
	}
}

// WithOnSuccess appends a hook run after the mediator succeeded.
//
// Example:
//
//	ingress.WithOnSuccess(func(ctx context.Context, rt ingress.Route, d time.Duration) {
//	    logger.Debug("handled", zap.String("key", rt.Key), zap.Duration("took", d))
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(r *Router) {
		r.hooks.success = append(r.hooks.success, fn)
	}
}

// WithOnFailure appends a hook run after the mediator failed.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(r *Router) {
		r.hooks.failure = append(r.hooks.failure, fn)
	}
}

// WithOnNoSource appends a hook for unrecognized messages. All hooks run;
// the first error returned is the result.
//
// Example:
//
//	ingress.WithOnNoSource(func(ctx context.Context, raw []byte) error {
//	    return deadLetters.Put(ctx, raw)
//	})
func WithOnNoSource(fn OnNoSourceFunc) Option {
	return func(r *Router) {
		r.hooks.noSource = append(r.hooks.noSource, fn)
	}
}

// WithOnParseError appends a hook for messages the matched source could
// not parse. All hooks run; the first error returned is the result.
func WithOnParseError(fn OnParseErrorFunc) Option {
	return func(r *Router) {
		r.hooks.parseError = append(r.hooks.parseError, fn)
	}
}

// WithOnUnknownKey appends a hook for keys with no bound type. All hooks
// run; the first error returned is the result.
func WithOnUnknownKey(fn OnUnknownKeyFunc) Option {
	return func(r *Router) {
		r.hooks.unknownKey = append(r.hooks.unknownKey, fn)
	}
}

// WithOnUnmarshalError appends a hook for payloads that do not decode. All
// hooks run; the first error returned is the result.
func WithOnUnmarshalError(fn OnUnmarshalErrorFunc) Option {
	return func(r *Router) {
		r.hooks.unmarshalError = append(r.hooks.unmarshalError, fn)
	}
}

// WithOnValidationError appends a hook for messages that fail validation.
// All hooks run; the first error returned is the result.
//
// Example:
//
//	ingress.WithOnValidationError(func(ctx context.Context, rt ingress.Route, err error) error {
//	    logger.Warn("rejected", zap.Stringer("type", rt.Message), zap.Error(err))
//	    return nil
//	})
func WithOnValidationError(fn OnValidationErrorFunc) Option {
	return func(r *Router) {
		r.hooks.validationError = append(r.hooks.validationError, fn)
	}
}

// A Source may implement any of the following interfaces to observe or
// decide on its own messages. Source hooks run after the global ones.

// OnParseHook lets a source enrich the context of its messages.
type OnParseHook interface {
	OnParse(ctx context.Context, rt Route) context.Context
}

// OnDispatchHook is told when one of the source's messages is dispatched.
type OnDispatchHook interface {
	OnDispatch(ctx context.Context, rt Route)
}

// OnSuccessHook is told when one of the source's messages was handled.
type OnSuccessHook interface {
	OnSuccess(ctx context.Context, rt Route, duration time.Duration)
}

// OnFailureHook is told when handling one of the source's messages failed.
type OnFailureHook interface {
	OnFailure(ctx context.Context, rt Route, err error, duration time.Duration)
}

// OnUnknownKeyHook has a say on the source's unbound keys. An error from a
// global hook takes precedence over the source's.
type OnUnknownKeyHook interface {
	OnUnknownKey(ctx context.Context, rt Route) error
}

// OnUnmarshalErrorHook has a say on the source's undecodable payloads. An
// error from a global hook takes precedence over the source's.
type OnUnmarshalErrorHook interface {
	OnUnmarshalError(ctx context.Context, rt Route, err error) error
}

// OnValidationErrorHook has a say on the source's invalid messages. An
// error from a global hook takes precedence over the source's.
type OnValidationErrorHook interface {
	OnValidationError(ctx context.Context, rt Route, err error) error
}

// decide applies the skip-or-fail rule of error hooks. Every global hook
// runs, then the source's own hook if it has one. The first error wins. When
// no hook errs, the message is dropped if any global hook is configured and
// fails with fallback otherwise.
func decide[F any](global []F, call func(F) error, local func() error, fallback error) error {
	var first error
	for _, fn := range global {
		if err := call(fn); err != nil && first == nil {
			first = err
		}
	}
	if local != nil {
		if err := local(); err != nil && first == nil {
			first = err
		}
	}

	switch {
	case first != nil:
		return first
	case len(global) > 0:
		return nil
	default:
		return fallback
	}
}
