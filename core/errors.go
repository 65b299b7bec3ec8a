package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNilCallback is returned when a nil callback or receiver is registered.
	ErrNilCallback = fmt.Errorf("callback must not be nil")

	// ErrInvalidArity is returned for a negative arity or one the callback
	// cannot accept.
	ErrInvalidArity = fmt.Errorf("invalid arity")

	// ErrEmptyHookName is returned when a hook name is empty.
	ErrEmptyHookName = fmt.Errorf("hook name must not be empty")

	// ErrUnknownMethod is returned by Method when the receiver lacks the method.
	ErrUnknownMethod = fmt.Errorf("unknown method")

	// ErrArgumentMismatch is returned when forwarded arguments do not fit a
	// reflective callback's signature.
	ErrArgumentMismatch = fmt.Errorf("argument mismatch")

	// ErrMaxDepthExceeded is returned when dispatches, of any hooks, nest
	// deeper than the configured limit.
	ErrMaxDepthExceeded = fmt.Errorf("maximum dispatch depth exceeded")
)

// DispatchError wraps an error returned by a callback during dispatch.
type DispatchError struct {
	Hook     string
	Priority int
	Key      Key
	Err      error
}

// Error implements error.
func (e *DispatchError) Error() string {
	if e.Hook == "" {
		return fmt.Sprintf("callback %s at priority %d: %v", e.Key, e.Priority, e.Err)
	}
	return fmt.Sprintf("hook %q: callback %s at priority %d: %v", e.Hook, e.Key, e.Priority, e.Err)
}

// Unwrap returns the callback's error.
func (e *DispatchError) Unwrap() error { return e.Err }

// AsDispatchError reports whether err is, or wraps, a *DispatchError.
func AsDispatchError(err error) (*DispatchError, bool) {
	var de *DispatchError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
