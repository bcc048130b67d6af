package mediator

import (
	"context"
	"time"
)

// OnDispatchFunc is called after the handlers of a message have been
// resolved, just before they run. Use it to enrich the context with logging
// fields or trace spans. The returned context is used for the rest of the
// dispatch, including the matching OnSuccess or OnFailure call.
type OnDispatchFunc func(ctx context.Context, c Contract) context.Context

// OnSuccessFunc is called after a dispatch completes without error. For
// streams, it is called when iteration ends.
type OnSuccessFunc func(ctx context.Context, c Contract, duration time.Duration)

// OnFailureFunc is called after a dispatch fails.
type OnFailureFunc func(ctx context.Context, c Contract, err error, duration time.Duration)

// OnNoHandlerFunc is called when a request or stream request has no
// registered handler. The dispatch still fails with a *NoHandlerError.
type OnNoHandlerFunc func(ctx context.Context, c Contract)

// hooks holds all configured hook functions.
type hooks struct {
	onDispatch  []OnDispatchFunc
	onSuccess   []OnSuccessFunc
	onFailure   []OnFailureFunc
	onNoHandler []OnNoHandlerFunc
}

func (h *hooks) dispatch(ctx context.Context, c Contract) context.Context {
	for _, fn := range h.onDispatch {
		ctx = fn(ctx, c)
	}
	return ctx
}

func (h *hooks) complete(ctx context.Context, c Contract, err error, d time.Duration) {
	if err != nil {
		for _, fn := range h.onFailure {
			fn(ctx, c, err, d)
		}
		return
	}
	for _, fn := range h.onSuccess {
		fn(ctx, c, d)
	}
}

func (h *hooks) noHandler(ctx context.Context, c Contract) {
	for _, fn := range h.onNoHandler {
		fn(ctx, c)
	}
}

// observe runs next between the dispatch and completion hooks.
func observe[R any](ctx context.Context, h *hooks, c Contract, next Next[R]) (R, error) {
	ctx = h.dispatch(ctx, c)
	start := time.Now()
	out, err := next(ctx)
	h.complete(ctx, c, err, time.Since(start))
	return out, err
}

// config collects everything an Option can set.
type config struct {
	hooks    hooks
	cache    *Cache
	strategy PublishStrategy
}

func newConfig(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cache == nil {
		cfg.cache = NewCache()
	}
	if cfg.strategy == nil {
		cfg.strategy = Concurrent(0)
	}
	return cfg
}

// Option configures a Router, Dispatcher or Broadcaster.
type Option func(*config)

// WithCache makes the Dispatcher use c instead of a private Cache.
func WithCache(c *Cache) Option {
	return func(cfg *config) {
		cfg.cache = c
	}
}

// WithPublishStrategy sets how a Broadcaster runs the handlers of one
// notification. The default is Concurrent(0).
func WithPublishStrategy(s PublishStrategy) Option {
	return func(cfg *config) {
		cfg.strategy = s
	}
}

// WithOnDispatch adds a hook called just before handlers run.
// Multiple hooks are called in order, with context chaining through each.
//
// Example:
//
//	mediator.WithOnDispatch(func(ctx context.Context, c mediator.Contract) context.Context {
//	    return logx.WithCtx(ctx, slog.String("contract", c.String()))
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(cfg *config) {
		cfg.hooks.onDispatch = append(cfg.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after a dispatch succeeds.
// Multiple hooks are called in order.
//
// Example:
//
//	mediator.WithOnSuccess(func(ctx context.Context, c mediator.Contract, d time.Duration) {
//	    metrics.Timing("mediator.success", d, "message:"+c.Message.String())
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(cfg *config) {
		cfg.hooks.onSuccess = append(cfg.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a dispatch fails.
// Multiple hooks are called in order.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(cfg *config) {
		cfg.hooks.onFailure = append(cfg.hooks.onFailure, fn)
	}
}

// WithOnNoHandler adds a hook called when a request has no handler.
// Multiple hooks are called in order.
//
// Example:
//
//	mediator.WithOnNoHandler(func(ctx context.Context, c mediator.Contract) {
//	    logger.Warn(ctx, "missing registration", "contract", c)
//	})
func WithOnNoHandler(fn OnNoHandlerFunc) Option {
	return func(cfg *config) {
		cfg.hooks.onNoHandler = append(cfg.hooks.onNoHandler, fn)
	}
}
