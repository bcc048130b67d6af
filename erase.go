package mediator

import (
	"context"
	"reflect"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// bindMethod returns the Handle method of instance after checking that its
// signature is exactly in -> out.
func bindMethod(instance any, c Contract, in, out []reflect.Type) (reflect.Value, error) {
	m := reflect.ValueOf(instance).MethodByName("Handle")
	if !m.IsValid() {
		return reflect.Value{}, incompatible(c, instance)
	}

	t := m.Type()
	if t.IsVariadic() || t.NumIn() != len(in) || t.NumOut() != len(out) {
		return reflect.Value{}, incompatible(c, instance)
	}
	for i, typ := range in {
		if t.In(i) != typ {
			return reflect.Value{}, incompatible(c, instance)
		}
	}
	for i, typ := range out {
		if t.Out(i) != typ {
			return reflect.Value{}, incompatible(c, instance)
		}
	}
	return m, nil
}

// ctxValue wraps ctx for a reflective call; a nil ctx becomes a nil
// context.Context rather than an invalid Value.
func ctxValue(ctx context.Context) reflect.Value {
	if ctx == nil {
		return reflect.Zero(contextType)
	}
	return reflect.ValueOf(ctx)
}

// results unpacks the (R, error) results of a reflective call.
func results[R any](out []reflect.Value) (R, error) {
	r, _ := out[0].Interface().(R)
	err, _ := out[1].Interface().(error)
	return r, err
}

// errorResult unpacks the single error result of a reflective call.
func errorResult(out []reflect.Value) error {
	err, _ := out[0].Interface().(error)
	return err
}
