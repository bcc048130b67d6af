// Package validation rejects invalid requests before they reach their
// handler.
//
// Requests are checked against their `validate` struct tags with
// go-playground/validator and, when they implement Validatable, by calling
// Validate. Both failures are reported as an *Error matching ErrValidation.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bjaus/mediator"
)

// ErrValidation is matched by every error returned for an invalid request.
var ErrValidation = errors.New("validation failed")

// Validatable is implemented by requests that check their own invariants.
type Validatable interface {
	Validate() error
}

// Error reports why a request of type Message was rejected. Err is either a
// validator.ValidationErrors or the error returned by Validate.
type Error struct {
	Message reflect.Type
	Err     error
}

func (e *Error) Error() string {
	var fields validator.ValidationErrors
	if !errors.As(e.Err, &fields) {
		return fmt.Sprintf("validation: %v: %v", e.Message, e.Err)
	}

	messages := make([]string, 0, len(fields))
	for _, f := range fields {
		messages = append(messages, fmt.Sprintf("field '%s' failed validation: %s", f.Namespace(), f.Tag()))
	}
	return fmt.Sprintf("validation: %v: %s", e.Message, strings.Join(messages, "; "))
}

// Unwrap exposes both ErrValidation and the underlying failure.
func (e *Error) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

var _ mediator.AnyBehavior = (*Behavior)(nil)

// Behavior is a mediator.AnyBehavior validating every request.
type Behavior struct {
	validate *validator.Validate
}

// Option configures a Behavior.
type Option func(*Behavior)

// WithValidator makes the Behavior use v, for example one with custom
// validations registered.
func WithValidator(v *validator.Validate) Option {
	return func(b *Behavior) {
		b.validate = v
	}
}

// NewBehavior returns a Behavior configured by opts.
func NewBehavior(opts ...Option) *Behavior {
	b := &Behavior{}
	for _, opt := range opts {
		opt(b)
	}
	if b.validate == nil {
		b.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return b
}

// Handle implements mediator.AnyBehavior. An invalid request never reaches
// next.
func (b *Behavior) Handle(ctx context.Context, req any, next mediator.Next[any]) (any, error) {
	if err := b.Check(ctx, req); err != nil {
		return nil, err
	}
	return next(ctx)
}

// Check validates msg. It can be used directly on messages that do not go
// through a pipeline, such as notifications. A nil pointer is left alone.
func (b *Behavior) Check(ctx context.Context, msg any) error {
	v := reflect.ValueOf(msg)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	if v.Kind() == reflect.Struct {
		if err := b.validate.StructCtx(ctx, msg); err != nil {
			return &Error{Message: reflect.TypeOf(msg), Err: err}
		}
	}
	if val, ok := msg.(Validatable); ok {
		if err := val.Validate(); err != nil {
			return &Error{Message: reflect.TypeOf(msg), Err: err}
		}
	}
	return nil
}
