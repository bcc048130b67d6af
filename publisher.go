package mediator

import (
	"context"
	"errors"
	"reflect"

	"golang.org/x/sync/errgroup"
)

var _ Publisher = (*Broadcaster)(nil)

// HandlerCall invokes one notification handler with the notification being
// published.
type HandlerCall func(ctx context.Context) error

// PublishStrategy runs the handler calls of one notification. It must invoke
// every call and return only once all of them have returned.
type PublishStrategy interface {
	Publish(ctx context.Context, calls []HandlerCall) error
}

// PublishStrategyFunc is a function adapter for PublishStrategy.
type PublishStrategyFunc func(ctx context.Context, calls []HandlerCall) error

// Publish implements the PublishStrategy interface.
func (f PublishStrategyFunc) Publish(ctx context.Context, calls []HandlerCall) error {
	return f(ctx, calls)
}

// Sequential returns a strategy that calls handlers one at a time, in
// registration order. A failing handler does not stop the ones after it;
// a single failure is returned as is, several are joined with
// errors.Join.
func Sequential() PublishStrategy {
	return PublishStrategyFunc(func(ctx context.Context, calls []HandlerCall) error {
		errs := make([]error, len(calls))
		for i, call := range calls {
			errs[i] = call(ctx)
		}
		return join(errs)
	})
}

// Concurrent returns a strategy that calls handlers in their own goroutines,
// at most limit at a time (no limit when limit <= 0). It waits for all of
// them; failures are reported as by Sequential, in registration order.
func Concurrent(limit int) PublishStrategy {
	return PublishStrategyFunc(func(ctx context.Context, calls []HandlerCall) error {
		if len(calls) == 1 {
			return calls[0](ctx)
		}

		var g errgroup.Group
		if limit > 0 {
			g.SetLimit(limit)
		}

		errs := make([]error, len(calls))
		for i, call := range calls {
			g.Go(func() error {
				errs[i] = call(ctx)
				return nil
			})
		}
		_ = g.Wait()

		return join(errs)
	})
}

// Broadcaster is the Publisher implementation.
//
// Broadcaster is safe for concurrent use.
type Broadcaster struct {
	resolver Resolver
	strategy PublishStrategy
	hooks    hooks
}

// NewBroadcaster creates a Broadcaster resolving notification handlers
// from r.
func NewBroadcaster(r Resolver, opts ...Option) *Broadcaster {
	return newBroadcaster(r, newConfig(opts))
}

func newBroadcaster(r Resolver, cfg config) *Broadcaster {
	return &Broadcaster{resolver: r, strategy: cfg.strategy, hooks: cfg.hooks}
}

func (b *Broadcaster) broadcaster() *Broadcaster { return b }

type broadcasterProvider interface {
	broadcaster() *Broadcaster
}

// PublishAny implements Publisher. A notification without handlers is not an
// error.
func (b *Broadcaster) PublishAny(ctx context.Context, notification any) error {
	if isNil(notification) {
		return nilArgument("notification")
	}

	c := contractOf(KindNotificationHandler, reflect.TypeOf(notification), nil)
	instances, err := b.resolver.ResolveAll(c)
	if err != nil {
		return err
	}

	calls := make([]HandlerCall, 0, len(instances))
	for _, instance := range instances {
		m, err := bindMethod(instance, c,
			[]reflect.Type{contextType, c.Message},
			[]reflect.Type{errorType})
		if err != nil {
			return err
		}
		value := reflect.ValueOf(notification)
		calls = append(calls, func(ctx context.Context) error {
			return errorResult(m.Call([]reflect.Value{ctxValue(ctx), value}))
		})
	}
	return b.run(ctx, c, calls)
}

// PublishAll implements Publisher. Each notification is published only after
// the previous one completed; the first failure stops the remaining ones.
// Effects of notifications already published are kept.
func (b *Broadcaster) PublishAll(ctx context.Context, notifications []any) error {
	if notifications == nil {
		return nilArgument("notifications")
	}
	for _, n := range notifications {
		if err := b.PublishAny(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// join returns the only failure unchanged, or all of them joined.
func join(errs []error) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 1 {
		return failed[0]
	}
	return errors.Join(failed...)
}

func (b *Broadcaster) run(ctx context.Context, c Contract, calls []HandlerCall) error {
	_, err := observe(ctx, &b.hooks, c, func(ctx context.Context) (Unit, error) {
		if len(calls) == 0 {
			return Unit{}, nil
		}
		return Unit{}, b.strategy.Publish(ctx, calls)
	})
	return err
}

// Publish publishes notification to every handler registered for its type.
//
//	err := mediator.Publish(ctx, m, UserCreated{ID: id})
//
// When p is a Broadcaster (or a Router) and the notification's dynamic type
// is N, handlers are called without reflection.
func Publish[N any](ctx context.Context, p Publisher, notification N) error {
	if isNil(notification) {
		return nilArgument("notification")
	}

	bp, ok := p.(broadcasterProvider)
	if !ok || reflect.TypeOf(notification) != reflect.TypeFor[N]() {
		return p.PublishAny(ctx, notification)
	}

	b := bp.broadcaster()
	c := NotificationContract[N]()
	instances, err := b.resolver.ResolveAll(c)
	if err != nil {
		return err
	}

	calls := make([]HandlerCall, 0, len(instances))
	for _, instance := range instances {
		h, ok := instance.(NotificationHandler[N])
		if !ok {
			return incompatible(c, instance)
		}
		calls = append(calls, func(ctx context.Context) error {
			return h.Handle(ctx, notification)
		})
	}
	return b.run(ctx, c, calls)
}
