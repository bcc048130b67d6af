// Package correlation carries correlation and causation IDs through the
// context of mediator dispatches.
//
// The correlation ID is shared by everything that happens because of one
// inbound message. The causation ID names the request that directly caused
// the current one, so a handler that sends further requests hands them its
// own ID as their causation.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type (
	correlationCtxKey struct{}
	causationCtxKey   struct{}
	requestCtxKey     struct{}
)

// WithCorrelationID returns a copy of ctx carrying id as correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationCtxKey{}, id)
}

// WithCausationID returns a copy of ctx carrying id as causation ID.
func WithCausationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, causationCtxKey{}, id)
}

// CorrelationID returns the correlation ID carried by ctx, if any.
func CorrelationID(ctx context.Context) (string, bool) {
	return lookup(ctx, correlationCtxKey{})
}

// CausationID returns the causation ID carried by ctx, if any.
func CausationID(ctx context.Context) (string, bool) {
	return lookup(ctx, causationCtxKey{})
}

// RequestID returns the ID Behavior assigned to the request being handled.
func RequestID(ctx context.Context) (string, bool) {
	return lookup(ctx, requestCtxKey{})
}

func lookup(ctx context.Context, key any) (string, bool) {
	id, ok := ctx.Value(key).(string)
	return id, ok && id != ""
}

// Generator produces new IDs.
type Generator func() string

// UUID generates random (version 4) UUIDs.
func UUID() string {
	return uuid.NewString()
}
