package mediator

import (
	"context"
	"iter"
)

// Handler handles a request of type Q and returns its response of type R.
//
// Example:
//
//	type GetUserHandler struct {
//	    db *sql.DB
//	}
//
//	func (h *GetUserHandler) Handle(ctx context.Context, q GetUser) (*User, error) {
//	    return loadUser(ctx, h.db, q.ID)
//	}
type Handler[Q Request[R], R any] interface {
	Handle(ctx context.Context, req Q) (R, error)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc[Q Request[R], R any] func(ctx context.Context, req Q) (R, error)

// Handle implements the Handler interface.
func (f HandlerFunc[Q, R]) Handle(ctx context.Context, req Q) (R, error) {
	return f(ctx, req)
}

// VoidHandler handles a request that declares no response. It is registered
// as a Handler[Q, Unit].
type VoidHandler[Q Request[Unit]] interface {
	Handle(ctx context.Context, req Q) error
}

// VoidHandlerFunc is a function adapter for VoidHandler.
type VoidHandlerFunc[Q Request[Unit]] func(ctx context.Context, req Q) error

// Handle implements the VoidHandler interface.
func (f VoidHandlerFunc[Q]) Handle(ctx context.Context, req Q) error {
	return f(ctx, req)
}

type voidHandler[Q Request[Unit]] struct {
	h VoidHandler[Q]
}

func (v voidHandler[Q]) Handle(ctx context.Context, req Q) (Unit, error) {
	return Unit{}, v.h.Handle(ctx, req)
}

// NotificationHandler reacts to a notification of type N. Any number of
// notification handlers may be registered for the same type.
type NotificationHandler[N any] interface {
	Handle(ctx context.Context, notification N) error
}

// NotificationHandlerFunc is a function adapter for NotificationHandler.
type NotificationHandlerFunc[N any] func(ctx context.Context, notification N) error

// Handle implements the NotificationHandler interface.
func (f NotificationHandlerFunc[N]) Handle(ctx context.Context, notification N) error {
	return f(ctx, notification)
}

// StreamHandler produces the elements of a stream request lazily. The
// returned sequence is pulled by the caller; it should stop producing as soon
// as yield returns false, and observe ctx between elements.
//
// Example:
//
//	func (h *CountHandler) Handle(ctx context.Context, q Count) iter.Seq2[int, error] {
//	    return func(yield func(int, error) bool) {
//	        for i := range q.N {
//	            if !yield(i, nil) {
//	                return
//	            }
//	        }
//	    }
//	}
type StreamHandler[Q StreamRequest[E], E any] interface {
	Handle(ctx context.Context, req Q) iter.Seq2[E, error]
}

// StreamHandlerFunc is a function adapter for StreamHandler.
type StreamHandlerFunc[Q StreamRequest[E], E any] func(ctx context.Context, req Q) iter.Seq2[E, error]

// Handle implements the StreamHandler interface.
func (f StreamHandlerFunc[Q, E]) Handle(ctx context.Context, req Q) iter.Seq2[E, error] {
	return f(ctx, req)
}

// Next continues a pipeline: it runs the remaining behaviors and the handler.
type Next[R any] func(ctx context.Context) (R, error)

// Behavior wraps the handling of requests of type Q with cross-cutting logic.
// A behavior calls next to continue; not calling it short-circuits the
// pipeline. Calling next again runs the inner chain again, which is how
// retry behaviors work.
//
// Example:
//
//	type AuditBehavior struct{ log *AuditLog }
//
//	func (b *AuditBehavior) Handle(ctx context.Context, q DeleteUser, next mediator.Next[mediator.Unit]) (mediator.Unit, error) {
//	    b.log.Record(ctx, "delete", q.ID)
//	    return next(ctx)
//	}
type Behavior[Q Request[R], R any] interface {
	Handle(ctx context.Context, req Q, next Next[R]) (R, error)
}

// BehaviorFunc is a function adapter for Behavior.
type BehaviorFunc[Q Request[R], R any] func(ctx context.Context, req Q, next Next[R]) (R, error)

// Handle implements the Behavior interface.
func (f BehaviorFunc[Q, R]) Handle(ctx context.Context, req Q, next Next[R]) (R, error) {
	return f(ctx, req, next)
}

// AnyBehavior is a behavior that applies to every request type. It sees the
// request and the response as untyped values; a response it returns without
// calling next must have the request's declared response type.
type AnyBehavior interface {
	Handle(ctx context.Context, req any, next Next[any]) (any, error)
}

// AnyBehaviorFunc is a function adapter for AnyBehavior.
type AnyBehaviorFunc func(ctx context.Context, req any, next Next[any]) (any, error)

// Handle implements the AnyBehavior interface.
func (f AnyBehaviorFunc) Handle(ctx context.Context, req any, next Next[any]) (any, error) {
	return f(ctx, req, next)
}

// Sender dispatches requests to their single handler.
type Sender interface {
	// SendAny sends a request whose type is only known at runtime. The
	// response is returned as an untyped value of the declared response type.
	SendAny(ctx context.Context, req any) (any, error)

	// CreateStreamAny opens a stream request whose type is only known at
	// runtime.
	CreateStreamAny(ctx context.Context, req any) (iter.Seq2[any, error], error)
}

// Publisher fans notifications out to all of their handlers.
type Publisher interface {
	// PublishAny publishes a notification to every handler registered for
	// its runtime type.
	PublishAny(ctx context.Context, notification any) error

	// PublishAll publishes notifications one after the other, in order.
	PublishAll(ctx context.Context, notifications []any) error
}

// Mediator combines Sender and Publisher.
type Mediator interface {
	Sender
	Publisher
}
