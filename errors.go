package mediator

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrInvalidArgument is returned when a required input is nil.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoHandler is returned when no handler is registered for a request
	// or stream request. Use errors.As with *NoHandlerError to find out
	// which contract was missing.
	ErrNoHandler = errors.New("no handler registered")

	// ErrMalformedRequest is returned when a value sent as a request does not
	// declare a response (or element) type.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrIncompatibleHandler is returned when a resolved instance does not
	// implement the contract it was resolved for, or when a behavior returns
	// a value of the wrong response type.
	ErrIncompatibleHandler = errors.New("incompatible handler")
)

// NoHandlerError reports the contract for which no handler was registered.
type NoHandlerError struct {
	Contract Contract
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("mediator: no handler registered for %s", e.Contract)
}

// Is reports whether target is ErrNoHandler.
func (e *NoHandlerError) Is(target error) bool {
	return target == ErrNoHandler
}

func nilArgument(what string) error {
	return fmt.Errorf("mediator: %s is nil: %w", what, ErrInvalidArgument)
}

func malformed(v any, want string) error {
	return fmt.Errorf("mediator: %T does not declare %s: %w", v, want, ErrMalformedRequest)
}

func incompatible(c Contract, instance any) error {
	return fmt.Errorf("mediator: %T does not implement %s: %w", instance, c, ErrIncompatibleHandler)
}

// isNil reports whether v is nil or a nil pointer, map, slice, func,
// channel or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// cast converts an untyped response back to R. A nil value becomes the zero
// R.
func cast[R any](v any) (R, error) {
	var zero R
	if v == nil {
		return zero, nil
	}
	r, ok := v.(R)
	if !ok {
		return zero, fmt.Errorf("mediator: got response of type %T, want %v: %w",
			v, reflect.TypeFor[R](), ErrIncompatibleHandler)
	}
	return r, nil
}
