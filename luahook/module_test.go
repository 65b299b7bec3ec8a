package luahook

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/hookmesh/core"
	"github.com/hupe1980/hookmesh/engine"
	"github.com/hupe1980/hookmesh/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func newPlugin(t *testing.T, table *engine.Table) *Plugin {
	t.Helper()
	p := NewPlugin(table, func(o *PluginOptions) { o.Name = "test" })
	t.Cleanup(p.Close)
	return p
}

func TestModule_FiltersThreadAcrossGoAndLua(t *testing.T) {
	table := engine.New()
	p := newPlugin(t, table)

	require.NoError(t, p.DoString(`
		local hooks = require("hooks")
		hooks.add_filter("title", function(s) return s .. "-lua" end, 20)
	`))
	require.NoError(t, table.Register("title", core.Named("go", func(args ...any) (any, error) {
		return args[0].(string) + "-go", nil
	})))

	got, err := table.ApplyString("title", "seed")
	require.NoError(t, err)
	assert.Equal(t, "seed-go-lua", got)

	require.NoError(t, p.DoString(`result = require("hooks").apply_filters("title", "x")`))
	assert.Equal(t, "x-go-lua", p.L.GetGlobal("result").String())
}

func TestModule_MutationDuringDispatch(t *testing.T) {
	table := engine.New()
	p := newPlugin(t, table)

	require.NoError(t, p.DoString(`
		local hooks = require("hooks")
		local function c(s) return s .. "-c" end
		hooks.add_filter("x", function(s)
			hooks.add_filter("x", c, 15)
			return s .. "-a"
		end, 10)
		hooks.add_filter("x", function(s) return s .. "-b" end, 20)
	`))

	for i := 0; i < 2; i++ {
		got, err := table.ApplyString("x", "seed")
		require.NoError(t, err)
		assert.Equal(t, "seed-a-c-b", got)
	}

	assert.Len(t, table.Registrations("x"), 3, "re-adding the same function replaces it")
}

func TestModule_RemoveByFunction(t *testing.T) {
	table := engine.New()
	p := newPlugin(t, table)

	require.NoError(t, p.DoString(`
		local hooks = require("hooks")
		function shout(s) return string.upper(s) end
		hooks.add_filter("t", shout, "5")
		p1 = hooks.has_filter("t", shout)
		removed = hooks.remove_filter("t", shout, 5)
		again = hooks.remove_filter("t", shout, 5)
		p2 = hooks.has_filter("t", shout)
		any = hooks.has_filter("t")
	`))

	assert.Equal(t, lua.LNumber(5), p.L.GetGlobal("p1"))
	assert.Equal(t, lua.LTrue, p.L.GetGlobal("removed"))
	assert.Equal(t, lua.LFalse, p.L.GetGlobal("again"))
	assert.Equal(t, lua.LFalse, p.L.GetGlobal("p2"))
	assert.Equal(t, lua.LFalse, p.L.GetGlobal("any"))
	assert.False(t, table.Has("t"))
}

func TestModule_RemoveAll(t *testing.T) {
	table := engine.New()
	p := newPlugin(t, table)

	require.NoError(t, p.DoString(`
		local hooks = require("hooks")
		local function f(v) return v end
		hooks.add_filter("a", f, 1)
		hooks.add_filter("a", f, 2)
		hooks.add_filter("b", f)
		hooks.remove_all("a", 1)
	`))
	require.Len(t, table.Registrations("a"), 1)
	assert.Equal(t, 2, table.Registrations("a")[0].Priority)

	require.NoError(t, p.DoString(`require("hooks").remove_all("a")`))
	assert.False(t, table.Has("a"))
	assert.True(t, table.Has("b"))
}

func TestModule_ActionsAndIntrospection(t *testing.T) {
	table := engine.New()
	p := newPlugin(t, table)

	require.NoError(t, p.DoString(`
		local hooks = require("hooks")
		seen = {}
		hooks.add_action("save", function(path, n)
			seen.current = hooks.current_filter()
			seen.doing = hooks.doing_filter("save")
			seen.path = path
			seen.n = n
		end, 10, 2)
		hooks.do_action("save", "/tmp/a", 3, "ignored")
		count = hooks.did_action("save")
		idle = hooks.doing_filter()
		outside = hooks.current_filter()
	`))

	b := NewBridge(p.L)
	assert.Equal(t, map[string]any{
		"current": "save",
		"doing":   true,
		"path":    "/tmp/a",
		"n":       int64(3),
	}, b.ToGoValue(p.L.GetGlobal("seen")))
	assert.Equal(t, lua.LNumber(1), p.L.GetGlobal("count"))
	assert.Equal(t, lua.LFalse, p.L.GetGlobal("idle"))
	assert.Equal(t, lua.LNil, p.L.GetGlobal("outside"))

	require.NoError(t, table.DoAction("save", "/tmp/b", 4))
	assert.Equal(t, 2, table.Count("save"))
}

func TestModule_LuaErrors(t *testing.T) {
	table := engine.New()
	p := newPlugin(t, table)

	require.NoError(t, p.DoString(`
		local hooks = require("hooks")
		hooks.add_filter("bad", function(v) error("nope") end)
	`))

	_, err := table.ApplyFilters("bad", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	de, ok := core.AsDispatchError(err)
	require.True(t, ok)
	assert.Equal(t, "bad", de.Hook)
	assert.False(t, table.IsDispatching(""))

	require.NoError(t, p.DoString(`
		local hooks = require("hooks")
		ok, msg = pcall(hooks.apply_filters, "bad", 1)
	`))
	assert.Equal(t, lua.LFalse, p.L.GetGlobal("ok"))
	assert.Contains(t, p.L.GetGlobal("msg").String(), "nope")

	err = p.DoString(`require("hooks").add_filter("", function() end)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), core.ErrEmptyHookName.Error())
}

func TestCallback_Key(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	require.NoError(t, L.DoString(`
		function f(v) return v end
		function g(v) return v end
	`))
	f := L.GetGlobal("f").(*lua.LFunction)
	g := L.GetGlobal("g").(*lua.LFunction)

	assert.Equal(t, Callback(L, f).Key(), Callback(L, f).Key())
	assert.NotEqual(t, Callback(L, f).Key(), Callback(L, g).Key())
	assert.Contains(t, Callback(L, f).Key().String(), "lua:<string>:2@0x")
	assert.Nil(t, Callback(L, nil))

	out, err := Callback(L, f).Call("v")
	require.NoError(t, err)
	assert.Equal(t, "v", out)
}

func TestLoadPlugin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greet.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
		local hooks = require("hooks")
		hooks.add_filter("greet", function(name) return "hello " .. name end)
		log("info", "registered", "hook", "greet")
	`), 0o600))

	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	table := engine.New()
	p, err := LoadPlugin(path, table, func(o *PluginOptions) { o.Logger = logger })
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "greet", p.Name())
	assert.Contains(t, buf.String(), "registered")
	assert.Contains(t, buf.String(), "plugin=greet")

	got, err := table.ApplyString("greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, "hello bob", got)

	_, err = LoadPlugin(filepath.Join(dir, "missing.lua"), table)
	assert.Error(t, err)
}

func TestPlugin_Sandbox(t *testing.T) {
	p := newPlugin(t, engine.New())

	require.NoError(t, p.DoString(`has_os = os ~= nil; has_io = io ~= nil`))
	assert.Equal(t, lua.LFalse, p.L.GetGlobal("has_os"))
	assert.Equal(t, lua.LFalse, p.L.GetGlobal("has_io"))

	p.Close()
	p.Close()
	assert.ErrorIs(t, p.DoString(`x = 1`), ErrPluginClosed)
}

func TestOwns(t *testing.T) {
	table := engine.New()
	a := newPlugin(t, table)
	b := newPlugin(t, table)

	require.NoError(t, a.DoString(`require("hooks").add_filter("t", function(v) return v end)`))
	require.NoError(t, table.Register("t", core.Named("go", func(args ...any) (any, error) { return args[0], nil })))

	regs := table.Registrations("t")
	require.Len(t, regs, 2)
	assert.True(t, Owns(a, regs[0].Key))
	assert.False(t, Owns(b, regs[0].Key))
	assert.False(t, Owns(a, regs[1].Key))
}
