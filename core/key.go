package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Key identifies a registered callback. Two callbacks with equal keys are the
// same callback as far as a registry is concerned: registering the second at
// the same priority replaces the first, and either can be used to remove it.
//
// Key is a closed sum type. The concrete variants are NamedKey, FuncKey,
// MethodKey and ClosureKey; other packages may add their own variants by
// embedding one of them (see luahook.LuaKey).
type Key interface {
	fmt.Stringer
	isKey()
}

// NamedKey is an explicit, caller chosen identity.
type NamedKey struct {
	Name string
}

func (NamedKey) isKey() {}

// String implements fmt.Stringer.
func (k NamedKey) String() string { return "name:" + k.Name }

// FuncKey identifies a top-level function by its fully qualified runtime name.
type FuncKey struct {
	Name string
}

func (FuncKey) isKey() {}

// String implements fmt.Stringer.
func (k FuncKey) String() string { return "func:" + k.Name }

// MethodKey identifies a method bound to a receiver. Instance is the address
// of a pointer receiver, or zero for value receivers, in which case the key is
// the statically qualified Type.Method name.
type MethodKey struct {
	Type     string
	Method   string
	Instance uintptr
}

func (MethodKey) isKey() {}

// String implements fmt.Stringer.
func (k MethodKey) String() string {
	if k.Instance == 0 {
		return "method:" + k.Type + "::" + k.Method
	}
	return fmt.Sprintf("method:%s@%#x.%s", k.Type, k.Instance, k.Method)
}

// ClosureKey identifies one closure wrapper created by Closure.
type ClosureKey struct {
	ID uuid.UUID
}

func (ClosureKey) isKey() {}

// String implements fmt.Stringer.
func (k ClosureKey) String() string { return "closure:" + k.ID.String() }

// NewClosureKey mints a fresh closure identity.
func NewClosureKey() ClosureKey {
	return ClosureKey{ID: uuid.New()}
}
