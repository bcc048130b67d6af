// Package ratelimit throttles requests sent through a mediator pipeline
// with token-bucket limiters from golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/time/rate"

	"github.com/bjaus/mediator"
)

// ErrLimited is returned in non-blocking mode when a request finds no token.
var ErrLimited = errors.New("ratelimit: request rejected")

var _ mediator.AnyBehavior = (*Behavior)(nil)

// Behavior is a mediator.AnyBehavior admitting requests at a fixed rate.
//
// By default all requests share one limiter and callers wait for a token:
//
//	mediator.RegisterAnyBehavior(c, ratelimit.NewBehavior(rate.Limit(2), 2))
type Behavior struct {
	limit    rate.Limit
	burst    int
	block    bool
	perType  bool
	shared   *rate.Limiter
	limiters sync.Map // reflect.Type -> *rate.Limiter
}

// Option configures a Behavior.
type Option func(*Behavior)

// NonBlocking makes requests without an available token fail with
// ErrLimited instead of waiting.
func NonBlocking() Option {
	return func(b *Behavior) {
		b.block = false
	}
}

// PerType gives every request type its own limiter with the same limit and
// burst.
func PerType() Option {
	return func(b *Behavior) {
		b.perType = true
	}
}

// NewBehavior returns a Behavior allowing limit requests per second with
// bursts of up to burst requests.
func NewBehavior(limit rate.Limit, burst int, opts ...Option) *Behavior {
	b := &Behavior{limit: limit, burst: burst, block: true}
	for _, opt := range opts {
		opt(b)
	}
	if !b.perType {
		b.shared = rate.NewLimiter(limit, burst)
	}
	return b
}

// Handle implements mediator.AnyBehavior.
func (b *Behavior) Handle(ctx context.Context, req any, next mediator.Next[any]) (any, error) {
	lim := b.limiter(reflect.TypeOf(req))

	if b.block {
		if err := lim.Wait(ctx); err != nil {
			return nil, fmt.Errorf("ratelimit: %v: %w", reflect.TypeOf(req), err)
		}
	} else if !lim.Allow() {
		return nil, fmt.Errorf("%w: %v", ErrLimited, reflect.TypeOf(req))
	}

	return next(ctx)
}

func (b *Behavior) limiter(typ reflect.Type) *rate.Limiter {
	if b.shared != nil {
		return b.shared
	}
	if lim, ok := b.limiters.Load(typ); ok {
		return lim.(*rate.Limiter)
	}
	lim, _ := b.limiters.LoadOrStore(typ, rate.NewLimiter(b.limit, b.burst))
	return lim.(*rate.Limiter)
}
