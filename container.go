package mediator

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sync"
)

// Resolver supplies handler and behavior instances by contract. It is the
// only thing the mediator needs from a dependency injection container.
//
// Implementations must be safe for concurrent use. Registrations are
// expected to be complete before the first dispatch.
type Resolver interface {
	// ResolveOne returns the instance registered for c. It returns false
	// when nothing is registered.
	ResolveOne(c Contract) (any, bool, error)

	// ResolveAll returns every instance registered for c, in registration
	// order. It returns an empty slice when nothing is registered.
	ResolveAll(c Contract) ([]any, error)
}

var _ Resolver = (*Container)(nil)

// Container is an in-memory Resolver with typed registration helpers.
//
// Usage:
//
//	c := mediator.NewContainer()
//	mediator.RegisterHandler[GetUser, *User](c, &GetUserHandler{db: db})
//	mediator.RegisterNotificationHandler[UserCreated](c, &WelcomeMailer{})
//	mediator.RegisterAnyBehavior(c, loggingBehavior)
//
//	m := mediator.New(c)
//
// When several handlers are registered for the same request contract, the
// last registration wins.
type Container struct {
	mu      sync.RWMutex
	seq     uint64
	entries map[Contract][]registration
	open    []registration
}

type registration struct {
	seq      uint64
	instance any
}

// NewContainer creates an empty Container.
func NewContainer() *Container {
	return &Container{entries: make(map[Contract][]registration)}
}

// Add registers instance under the contract c. The typed Register functions
// are preferred; Add exists for adapters that build contracts themselves.
func (c *Container) Add(contract Contract, instance any) error {
	if contract.IsZero() {
		return fmt.Errorf("mediator: contract is empty: %w", ErrInvalidArgument)
	}
	if isNil(instance) {
		return nilArgument("instance")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		c.entries = make(map[Contract][]registration)
	}
	c.seq++
	c.entries[contract] = append(c.entries[contract], registration{seq: c.seq, instance: instance})
	return nil
}

func (c *Container) addOpen(b AnyBehavior) error {
	if isNil(b) {
		return nilArgument("behavior")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.open = append(c.open, registration{seq: c.seq, instance: b})
	return nil
}

func (c *Container) mustAdd(contract Contract, instance any) {
	if err := c.Add(contract, instance); err != nil {
		panic(err)
	}
}

// ResolveOne implements Resolver.
func (c *Container) ResolveOne(contract Contract) (any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	regs := c.entries[contract]
	if len(regs) == 0 {
		return nil, false, nil
	}
	return regs[len(regs)-1].instance, true, nil
}

// ResolveAll implements Resolver. Behavior contracts also receive every
// behavior registered with RegisterAnyBehavior, interleaved by registration
// order.
func (c *Container) ResolveAll(contract Contract) ([]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	regs := c.entries[contract]
	if contract.Kind == KindBehavior && len(c.open) > 0 {
		regs = append(slices.Clone(regs), c.open...)
		slices.SortFunc(regs, func(a, b registration) int { return cmp.Compare(a.seq, b.seq) })
	}

	out := make([]any, len(regs))
	for i, r := range regs {
		out[i] = r.instance
	}
	return out, nil
}

// Contracts lists the registered contracts, sorted by name.
func (c *Container) Contracts() []Contract {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Contract, 0, len(c.entries))
	for contract := range c.entries {
		out = append(out, contract)
	}
	slices.SortFunc(out, func(a, b Contract) int { return cmp.Compare(a.String(), b.String()) })
	return out
}

// RegisterHandler registers h as the handler of requests of type Q.
//
// This is a package-level function (not a method) because methods cannot
// have type parameters of their own. It panics if h is nil.
func RegisterHandler[Q Request[R], R any](c *Container, h Handler[Q, R]) {
	c.mustAdd(HandlerContract[Q, R](), h)
}

// RegisterHandlerFunc registers a function as the handler of Q.
//
//	mediator.RegisterHandlerFunc(c, func(ctx context.Context, q Echo) (string, error) {
//	    return "Processed: " + q.Text, nil
//	})
func RegisterHandlerFunc[Q Request[R], R any](c *Container, fn func(ctx context.Context, req Q) (R, error)) {
	RegisterHandler[Q, R](c, HandlerFunc[Q, R](fn))
}

// RegisterVoidHandler registers h as the handler of the void request Q.
func RegisterVoidHandler[Q Request[Unit]](c *Container, h VoidHandler[Q]) {
	if isNil(h) {
		panic(nilArgument("handler"))
	}
	c.mustAdd(HandlerContract[Q, Unit](), voidHandler[Q]{h: h})
}

// RegisterVoidHandlerFunc registers a function as the handler of the void
// request Q.
func RegisterVoidHandlerFunc[Q Request[Unit]](c *Container, fn func(ctx context.Context, req Q) error) {
	RegisterVoidHandler[Q](c, VoidHandlerFunc[Q](fn))
}

// RegisterNotificationHandler adds h to the handlers of notifications of
// type N.
func RegisterNotificationHandler[N any](c *Container, h NotificationHandler[N]) {
	c.mustAdd(NotificationContract[N](), h)
}

// RegisterNotificationHandlerFunc adds a function to the handlers of N.
func RegisterNotificationHandlerFunc[N any](c *Container, fn func(ctx context.Context, notification N) error) {
	RegisterNotificationHandler[N](c, NotificationHandlerFunc[N](fn))
}

// RegisterStreamHandler registers h as the handler of stream requests of
// type Q.
func RegisterStreamHandler[Q StreamRequest[E], E any](c *Container, h StreamHandler[Q, E]) {
	c.mustAdd(StreamContract[Q, E](), h)
}

// RegisterStreamHandlerFunc registers a function as the handler of the
// stream request Q.
func RegisterStreamHandlerFunc[Q StreamRequest[E], E any](c *Container, fn func(ctx context.Context, req Q) iter.Seq2[E, error]) {
	RegisterStreamHandler[Q, E](c, StreamHandlerFunc[Q, E](fn))
}

// RegisterBehavior adds b to the pipeline of requests of type Q. Behaviors
// run in registration order: the first registered is the outermost.
func RegisterBehavior[Q Request[R], R any](c *Container, b Behavior[Q, R]) {
	c.mustAdd(BehaviorContract[Q, R](), b)
}

// RegisterBehaviorFunc adds a function to the pipeline of requests of type Q.
func RegisterBehaviorFunc[Q Request[R], R any](c *Container, fn func(ctx context.Context, req Q, next Next[R]) (R, error)) {
	RegisterBehavior[Q, R](c, BehaviorFunc[Q, R](fn))
}

// RegisterAnyBehavior adds b to the pipeline of every request type.
func RegisterAnyBehavior(c *Container, b AnyBehavior) {
	if err := c.addOpen(b); err != nil {
		panic(err)
	}
}

// contractOf builds a contract from runtime types.
func contractOf(kind Kind, msg, result reflect.Type) Contract {
	return Contract{Kind: kind, Message: msg, Result: result}
}
