package luahook

import (
	"github.com/hupe1980/hookmesh/engine"
	"github.com/spf13/cast"
	lua "github.com/yuin/gopher-lua"
)

// ModuleName is the name scripts pass to require.
const ModuleName = "hooks"

// Module returns a loader for the hooks module bound to table.
func Module(table *engine.Table) lua.LGFunction {
	return func(L *lua.LState) int {
		m := &module{table: table, bridge: NewBridge(L)}

		mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
			"add_filter":     m.add,
			"add_action":     m.add,
			"remove_filter":  m.remove,
			"remove_action":  m.remove,
			"remove_all":     m.removeAll,
			"has_filter":     m.has,
			"has_action":     m.has,
			"apply_filters":  m.applyFilters,
			"do_action":      m.doAction,
			"did_action":     m.didAction,
			"current_filter": m.currentFilter,
			"doing_filter":   m.doingFilter,
			"doing_action":   m.doingFilter,
		})
		L.Push(mod)

		return 1
	}
}

// Preload registers the hooks module on L so scripts can require it.
func Preload(L *lua.LState, table *engine.Table) {
	L.PreloadModule(ModuleName, Module(table))
}

type module struct {
	table  *engine.Table
	bridge *Bridge
}

// add(name, fn [, priority [, arity]])
func (m *module) add(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	cfg := m.table.Config()
	priority := m.optInt(L, 3, cfg.DefaultPriority)
	arity := m.optInt(L, 4, cfg.DefaultArity)

	if err := m.table.Register(name, Callback(L, fn), engine.WithPriority(priority), engine.WithArity(arity)); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	L.Push(lua.LTrue)
	return 1
}

// remove(name, fn [, priority])
func (m *module) remove(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	priority := m.optInt(L, 3, m.table.Config().DefaultPriority)

	L.Push(lua.LBool(m.table.Unregister(name, keyOf(L, fn), priority)))
	return 1
}

// remove_all(name [, priority])
func (m *module) removeAll(L *lua.LState) int {
	name := L.CheckString(1)

	if L.Get(2) == lua.LNil {
		m.table.UnregisterAll(name)
		L.Push(lua.LTrue)
		return 1
	}

	L.Push(lua.LBool(m.table.UnregisterPriority(name, m.optInt(L, 2, 0))))
	return 1
}

// has(name [, fn]) returns a boolean, or the priority of fn when given.
func (m *module) has(L *lua.LState) int {
	name := L.CheckString(1)

	if L.Get(2) == lua.LNil {
		L.Push(lua.LBool(m.table.Has(name)))
		return 1
	}

	fn := L.CheckFunction(2)
	priority, ok := m.table.Priority(name, keyOf(L, fn))
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}

	L.Push(lua.LNumber(priority))
	return 1
}

// apply_filters(name, value, ...)
func (m *module) applyFilters(L *lua.LState) int {
	name := L.CheckString(1)

	out, err := m.table.ApplyFiltersArgs(name, m.args(L, 2))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	L.Push(m.bridge.ToLuaValue(out))
	return 1
}

// do_action(name, ...)
func (m *module) doAction(L *lua.LState) int {
	name := L.CheckString(1)

	if err := m.table.DoActionArgs(name, m.args(L, 2)); err != nil {
		L.RaiseError("%s", err.Error())
	}

	return 0
}

// did_action(name)
func (m *module) didAction(L *lua.LState) int {
	L.Push(lua.LNumber(m.table.Count(L.CheckString(1))))
	return 1
}

// current_filter()
func (m *module) currentFilter(L *lua.LState) int {
	name, ok := m.table.Current()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}

	L.Push(lua.LString(name))
	return 1
}

// doing_filter([name])
func (m *module) doingFilter(L *lua.LState) int {
	L.Push(lua.LBool(m.table.IsDispatching(L.OptString(1, ""))))
	return 1
}

// args converts the stack from index from upward. Trailing nils are kept.
func (m *module) args(L *lua.LState, from int) []any {
	top := L.GetTop()
	if top < from {
		return nil
	}

	args := make([]any, 0, top-from+1)
	for i := from; i <= top; i++ {
		args = append(args, m.bridge.ToGoValue(L.Get(i)))
	}

	return args
}

func (m *module) optInt(L *lua.LState, n, def int) int {
	v := L.Get(n)
	if v == lua.LNil {
		return def
	}

	i, err := cast.ToIntE(m.bridge.ToGoValue(v))
	if err != nil {
		L.ArgError(n, "integer expected, got "+v.Type().String())
		return def
	}

	return i
}
