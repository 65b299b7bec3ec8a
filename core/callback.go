package core

import (
	"fmt"
	"reflect"
	"runtime"
)

// Func is the native callback signature. For filters the first argument is
// the value being threaded and the returned value replaces it; for actions
// the returned value is discarded.
type Func func(args ...any) (any, error)

// Callback is the unit stored in a hook registry.
//
// Implementations must return the same Key for the lifetime of the value so a
// callback registered once can later be found and removed with that key.
type Callback interface {
	// Key returns the identity used for deduplication and removal.
	Key() Key

	// Call invokes the callback with already arity-capped arguments.
	Call(args ...any) (any, error)
}

// ArgLimiter is implemented by callbacks whose signature constrains how many
// positional arguments they accept. ArgRange returns the minimum and maximum
// count; maxArgs is -1 for variadic callbacks.
type ArgLimiter interface {
	ArgRange() (minArgs, maxArgs int)
}

// funcCallback binds a Func to a fixed key.
type funcCallback struct {
	key Key
	fn  Func
}

func (c *funcCallback) Key() Key { return c.key }

func (c *funcCallback) Call(args ...any) (any, error) { return c.fn(args...) }

// Named wraps fn under an explicit name. Registering another Named callback
// with the same name replaces this one.
func Named(name string, fn Func) Callback {
	if fn == nil {
		return nil
	}
	return &funcCallback{key: NamedKey{Name: name}, fn: fn}
}

// Static wraps a top-level function, keyed by its qualified runtime name.
//
// Function literals share one runtime name per source location, so closures
// that capture different state should be wrapped with Closure instead.
func Static(fn Func) Callback {
	if fn == nil {
		return nil
	}
	return &funcCallback{key: FuncKey{Name: funcName(fn)}, fn: fn}
}

// Closure wraps fn under a freshly minted identity. The returned value is the
// identity: keep it around to remove the callback later.
func Closure(fn Func) Callback {
	if fn == nil {
		return nil
	}
	return &funcCallback{key: NewClosureKey(), fn: fn}
}

func funcName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}
	return fmt.Sprintf("%#x", pc)
}

// methodCallback invokes an arbitrary method through reflection.
type methodCallback struct {
	key Key
	fn  reflect.Value
}

// Method binds the exported method name of receiver. Pointer receivers are
// keyed by instance; value receivers are keyed by their static Type.Method
// name. Arguments are passed through reflection and must be assignable to the
// method's parameter types.
func Method(receiver any, name string) (Callback, error) {
	if receiver == nil {
		return nil, ErrNilCallback
	}
	rv := reflect.ValueOf(receiver)
	m := rv.MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %T has no method %q", ErrUnknownMethod, receiver, name)
	}
	key := MethodKey{Type: rv.Type().String(), Method: name}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrNilCallback
		}
		key.Instance = rv.Pointer()
	}
	return &methodCallback{key: key, fn: m}, nil
}

func (c *methodCallback) Key() Key { return c.key }

func (c *methodCallback) ArgRange() (int, int) {
	t := c.fn.Type()
	if t.IsVariadic() {
		return t.NumIn() - 1, -1
	}
	return t.NumIn(), t.NumIn()
}

func (c *methodCallback) Call(args ...any) (any, error) {
	t := c.fn.Type()
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!t.IsVariadic() && len(args) > fixed) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrArgumentMismatch, c.key, t.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if i >= fixed {
			pt = t.In(fixed).Elem()
		} else {
			pt = t.In(i)
		}
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(pt) {
			return nil, fmt.Errorf("%w: %s argument %d is %s, want %s", ErrArgumentMismatch, c.key, i, v.Type(), pt)
		}
		in[i] = v
	}

	return unpackResults(c.fn.Call(in))
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// unpackResults maps a method's return values onto (value, error). A trailing
// error result is treated as the error; the first non-error result is the value.
func unpackResults(out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}

	var err error
	last := out[len(out)-1]
	if last.Type() == errorType {
		if !last.IsNil() {
			err = last.Interface().(error)
		}
		out = out[:len(out)-1]
	}

	if len(out) == 0 {
		return nil, err
	}
	return out[0].Interface(), err
}

// Invoke calls cb with at most arity leading arguments. An arity of zero
// calls cb without arguments.
func Invoke(cb Callback, arity int, args []any) (any, error) {
	n := min(arity, len(args))
	if n <= 0 {
		return cb.Call()
	}
	return cb.Call(args[:n]...)
}
