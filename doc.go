// Package mediator provides an in-process mediator: callers send requests,
// open streams and publish notifications without knowing which handler
// implements them.
//
// Three message shapes are supported:
//
//   - Requests (commands and queries) have exactly one handler and return a
//     single response. Pipeline behaviors can wrap their handling.
//   - Stream requests have exactly one handler and return a lazy sequence.
//   - Notifications have zero or more handlers, all of which are invoked.
//
// # Quick Start
//
// Declare a request and its response type by embedding Returns:
//
//	type Echo struct {
//	    mediator.Returns[string]
//	    Text string
//	}
//
// Register a handler and send the request:
//
//	c := mediator.NewContainer()
//	mediator.RegisterHandlerFunc(c, func(ctx context.Context, q Echo) (string, error) {
//	    return "Processed: " + q.Text, nil
//	})
//
//	m := mediator.New(c)
//
//	out, err := mediator.Send[string](ctx, m, Echo{Text: "hi"}) // "Processed: hi"
//
// Requests without a response embed Void and are sent with SendVoid. Stream
// requests embed Yields[E] and are opened with CreateStream, which returns an
// iter.Seq2[E, error]. Notifications are plain values published with Publish.
//
// # Resolution
//
// The mediator does not own handlers. It asks a Resolver for them by
// Contract: the handler kind plus the message and result types. Container
// is the Resolver shipped with the package; any dependency injection
// container can be adapted by implementing ResolveOne and ResolveAll.
//
// What the mediator derives from a request type (its contracts and the
// wrapper that dispatches it) is computed on first use and kept in a Cache
// for the life of the Router.
//
// # Typed and Untyped Calls
//
// Send, SendVoid, CreateStream and Publish are generic functions: with a
// Router, dispatch is fully typed and does not use reflection. SendAny,
// CreateStreamAny and PublishAny accept values whose type is only known at
// runtime, for example messages decoded by package ingress. They read the
// response or element type from the value's Returns or Yields marker and
// call handlers through reflection.
//
// # Pipeline Behaviors
//
// Behaviors wrap the handling of requests with cross-cutting concerns:
//
//	mediator.RegisterBehaviorFunc(c, func(ctx context.Context, q Echo, next mediator.Next[string]) (string, error) {
//	    start := time.Now()
//	    defer func() { log.Printf("echo took %v", time.Since(start)) }()
//	    return next(ctx)
//	})
//
// Behavior applies to one request type; AnyBehavior applies to all of them.
// Behaviors run in registration order: the first registered is the
// outermost, so with B1 registered before B2 a request runs
// B1, B2, handler, B2, B1. Not calling next short-circuits the handler;
// calling it again runs the rest of the pipeline again.
//
// Streams and notifications have no behaviors.
//
// # Notifications
//
// Publish invokes every handler registered for the notification's type and
// returns when all have returned. How they run is decided by the
// PublishStrategy: Concurrent (the default) or Sequential. Either way every
// handler is invoked; one failure is returned as is and several are joined
// with errors.Join.
//
// PublishAll publishes notifications strictly one after the other and stops
// at the first failure.
//
// # Hooks
//
// Hooks provide observability without coupling to specific logging or
// metrics systems:
//
//	m := mediator.New(c,
//	    mediator.WithOnDispatch(func(ctx context.Context, c mediator.Contract) context.Context {
//	        return logx.WithCtx(ctx, slog.String("contract", c.String()))
//	    }),
//	    mediator.WithOnSuccess(func(ctx context.Context, c mediator.Contract, d time.Duration) {
//	        metrics.Timing("mediator.success", d)
//	    }),
//	)
//
// Available hooks:
//   - WithOnDispatch: Called before handlers run, enriches context
//   - WithOnSuccess: Called after a dispatch succeeds
//   - WithOnFailure: Called after a dispatch fails
//   - WithOnNoHandler: Called when a request has no handler
//
// The extension packages build logging, tracing, validation, rate limiting
// and correlation on top of hooks and behaviors.
//
// # Error Handling
//
// Errors from handlers and behaviors are returned unchanged. The mediator's
// own errors wrap ErrInvalidArgument (nil input), ErrNoHandler (missing
// registration, see *NoHandlerError), ErrMalformedRequest (a value without a
// Returns or Yields marker) and ErrIncompatibleHandler (a resolved instance
// that does not implement its contract). Nothing is retried.
//
// # Thread Safety
//
// Router, Dispatcher, Broadcaster, Container and Cache are safe for
// concurrent use. Do not register handlers after the first dispatch.
package mediator
