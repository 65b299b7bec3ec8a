package luahook

import (
	"fmt"
	"reflect"

	"github.com/hupe1980/hookmesh/core"
	lua "github.com/yuin/gopher-lua"
)

// LuaKey identifies a Lua function within its state. Two wrappers of the
// same function object share a key, so a script can remove a callback by
// passing the function it registered.
type LuaKey struct {
	core.MethodKey
	State  uintptr
	Source string
}

// String implements fmt.Stringer.
func (k LuaKey) String() string {
	return fmt.Sprintf("lua:%s@%#x", k.Source, k.Instance)
}

// luaCallback calls a Lua function through its owning state.
type luaCallback struct {
	key    LuaKey
	fn     *lua.LFunction
	bridge *Bridge
}

// Callback wraps a Lua function as a core.Callback. The first value the
// function returns is the callback's result; a Lua error is returned as a Go
// error.
func Callback(L *lua.LState, fn *lua.LFunction) core.Callback {
	if L == nil || fn == nil {
		return nil
	}
	return &luaCallback{key: keyOf(L, fn), fn: fn, bridge: NewBridge(L)}
}

// Owns reports whether key belongs to a function of the plugin's state.
func Owns(p *Plugin, key core.Key) bool {
	k, ok := key.(LuaKey)
	return ok && p != nil && k.State == reflect.ValueOf(p.L).Pointer()
}

func keyOf(L *lua.LState, fn *lua.LFunction) LuaKey {
	source := "<go>"
	if !fn.IsG && fn.Proto != nil {
		source = fmt.Sprintf("%s:%d", fn.Proto.SourceName, fn.Proto.LineDefined)
	}

	return LuaKey{
		MethodKey: core.MethodKey{
			Type:     "lua.LFunction",
			Method:   "call",
			Instance: reflect.ValueOf(fn).Pointer(),
		},
		State:  reflect.ValueOf(L).Pointer(),
		Source: source,
	}
}

func (c *luaCallback) Key() core.Key { return c.key }

func (c *luaCallback) Call(args ...any) (any, error) {
	results, err := c.bridge.CallFunc(c.fn, args...)
	if err != nil {
		return nil, fmt.Errorf("lua callback %s: %w", c.key.Source, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// ArgRange implements core.ArgLimiter. Lua functions take any number of
// arguments.
func (c *luaCallback) ArgRange() (minArgs, maxArgs int) {
	return 0, -1
}
