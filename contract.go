package mediator

import (
	"fmt"
	"reflect"
)

// Unit is the response type of requests that produce no meaningful value.
// It lets void requests travel through the same pipeline as requests with
// a response.
type Unit struct{}

// Returns declares the response type of a request. Embed it in the request
// type:
//
//	type CreateUser struct {
//	    mediator.Returns[UserID]
//	    Email string
//	}
//
// Requests that produce nothing embed Returns[Unit] (or the Void alias).
type Returns[R any] struct{}

func (Returns[R]) respondsWith(R) {}

func (Returns[R]) responseShape() responseShape {
	return responseShape{typ: reflect.TypeFor[R](), wrapper: erasedRequest[R]{}}
}

// Void is the marker embedded by requests without a response.
type Void = Returns[Unit]

// Request is satisfied by any type embedding Returns[R].
type Request[R any] interface {
	respondsWith(R)
}

// Yields declares the element type of a stream request. Embed it in the
// request type the same way as Returns.
type Yields[E any] struct{}

func (Yields[E]) yieldsElement(E) {}

func (Yields[E]) elementShape() responseShape {
	return responseShape{typ: reflect.TypeFor[E](), wrapper: erasedStream[E]{}}
}

// StreamRequest is satisfied by any type embedding Yields[E].
type StreamRequest[E any] interface {
	yieldsElement(E)
}

// responseShape is what a request value reveals about itself at runtime:
// the declared result type and the erased wrapper that can dispatch it.
type responseShape struct {
	typ     reflect.Type
	wrapper any
}

type responseDeclarer interface {
	responseShape() responseShape
}

type elementDeclarer interface {
	elementShape() responseShape
}

// ResponseType reports the response type declared by req, if any.
func ResponseType(req any) (reflect.Type, bool) {
	d, ok := req.(responseDeclarer)
	if !ok {
		return nil, false
	}
	return d.responseShape().typ, true
}

// ElementType reports the element type declared by a stream request, if any.
func ElementType(req any) (reflect.Type, bool) {
	d, ok := req.(elementDeclarer)
	if !ok {
		return nil, false
	}
	return d.elementShape().typ, true
}

// Kind identifies which handler contract a Contract refers to.
type Kind uint8

const (
	// KindHandler is the contract of a single-response request handler.
	KindHandler Kind = iota + 1
	// KindBehavior is the contract of a pipeline behavior.
	KindBehavior
	// KindStreamHandler is the contract of a stream request handler.
	KindStreamHandler
	// KindNotificationHandler is the contract of a notification handler.
	KindNotificationHandler
)

func (k Kind) String() string {
	switch k {
	case KindHandler:
		return "Handler"
	case KindBehavior:
		return "Behavior"
	case KindStreamHandler:
		return "StreamHandler"
	case KindNotificationHandler:
		return "NotificationHandler"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Contract identifies a handler contract instantiated for one message type.
// It is the key handed to a Resolver.
//
// Message is the request or notification type. Result is the response type
// for handlers and behaviors, the element type for stream handlers, and nil
// for notification handlers.
type Contract struct {
	Kind    Kind
	Message reflect.Type
	Result  reflect.Type
}

// IsZero reports whether c identifies nothing.
func (c Contract) IsZero() bool {
	return c.Kind == 0 || c.Message == nil
}

func (c Contract) String() string {
	if c.Result == nil {
		return fmt.Sprintf("%s[%v]", c.Kind, c.Message)
	}
	return fmt.Sprintf("%s[%v, %v]", c.Kind, c.Message, c.Result)
}

// HandlerContract returns the contract a Handler[Q, R] is registered under.
func HandlerContract[Q Request[R], R any]() Contract {
	return Contract{Kind: KindHandler, Message: reflect.TypeFor[Q](), Result: reflect.TypeFor[R]()}
}

// BehaviorContract returns the contract a Behavior[Q, R] is registered under.
func BehaviorContract[Q Request[R], R any]() Contract {
	return Contract{Kind: KindBehavior, Message: reflect.TypeFor[Q](), Result: reflect.TypeFor[R]()}
}

// StreamContract returns the contract a StreamHandler[Q, E] is registered under.
func StreamContract[Q StreamRequest[E], E any]() Contract {
	return Contract{Kind: KindStreamHandler, Message: reflect.TypeFor[Q](), Result: reflect.TypeFor[E]()}
}

// NotificationContract returns the contract a NotificationHandler[N] is
// registered under.
func NotificationContract[N any]() Contract {
	return Contract{Kind: KindNotificationHandler, Message: reflect.TypeFor[N]()}
}
