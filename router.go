package mediator

var _ Mediator = (*Router)(nil)

// Router is the single entry point for callers that need both sending and
// publishing. It adds nothing to the Dispatcher and Broadcaster it embeds.
//
// Usage:
//  1. Create a Container and register handlers and behaviors in it
//  2. Create a router with New
//  3. Send requests with Send, SendVoid or SendAny
//  4. Open streams with CreateStream or CreateStreamAny
//  5. Publish notifications with Publish, PublishAny or PublishAll
//
// Router is safe for concurrent use. Registrations must be complete before
// the first dispatch.
type Router struct {
	*Dispatcher
	*Broadcaster
}

// New creates a Router resolving handlers from r.
//
// Example:
//
//	c := mediator.NewContainer()
//	mediator.RegisterHandlerFunc(c, func(ctx context.Context, q Echo) (string, error) {
//	    return "Processed: " + q.Text, nil
//	})
//
//	m := mediator.New(c,
//	    mediator.WithOnFailure(func(ctx context.Context, c mediator.Contract, err error, d time.Duration) {
//	        metrics.Incr("mediator.failure", "message:"+c.Message.String())
//	    }),
//	)
//
//	out, err := mediator.Send[string](ctx, m, Echo{Text: "hi"})
func New(r Resolver, opts ...Option) *Router {
	cfg := newConfig(opts)
	return &Router{
		Dispatcher:  newDispatcher(r, cfg),
		Broadcaster: newBroadcaster(r, cfg),
	}
}
