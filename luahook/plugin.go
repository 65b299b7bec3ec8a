package luahook

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hupe1980/hookmesh/engine"
	"github.com/hupe1980/hookmesh/logging"
	lua "github.com/yuin/gopher-lua"
)

// ErrPluginClosed is returned when a closed plugin is used.
var ErrPluginClosed = errors.New("luahook: plugin closed")

// Plugin is a Lua script running in its own state with the hooks module
// preloaded. Callbacks the script registers stay bound to that state and
// must not be dispatched after Close.
type Plugin struct {
	name   string
	L      *lua.LState
	logger logging.Logger
	closed bool
}

// PluginOptions configures a Plugin.
type PluginOptions struct {
	// Name overrides the plugin name derived from the script path.
	Name string

	// Logger receives load records and backs the script's log function.
	Logger logging.Logger

	// OpenAll opens every Lua standard library instead of the safe subset.
	OpenAll bool
}

// NewPlugin creates an empty plugin bound to table. Scripts are loaded with
// DoFile or DoString.
func NewPlugin(table *engine.Table, optFns ...func(o *PluginOptions)) *Plugin {
	opts := PluginOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: !opts.OpenAll})
	if !opts.OpenAll {
		openSafeLibraries(L)
	}

	p := &Plugin{name: opts.Name, L: L, logger: opts.Logger}

	Preload(L, table)
	L.SetGlobal("log", L.NewFunction(p.log))

	return p
}

// LoadPlugin creates a plugin and runs the script at path in it.
func LoadPlugin(path string, table *engine.Table, optFns ...func(o *PluginOptions)) (*Plugin, error) {
	p := NewPlugin(table, optFns...)
	if p.name == "" {
		p.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := p.DoFile(path); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// openSafeLibraries opens the libraries scripts need without io, os or debug.
// package is required for require.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// Name returns the plugin name.
func (p *Plugin) Name() string { return p.name }

// DoFile runs a Lua file in the plugin's state.
func (p *Plugin) DoFile(path string) error {
	return p.do(func() error { return p.L.DoFile(path) }, "path", path)
}

// DoString runs Lua source in the plugin's state.
func (p *Plugin) DoString(code string) error {
	return p.do(func() error { return p.L.DoString(code) })
}

func (p *Plugin) do(fn func() error, args ...any) (err error) {
	if p.closed {
		return ErrPluginClosed
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
		if err != nil {
			p.logger.Error("lua.plugin.failed", append(args, "plugin", p.name, "error", err)...)
			return
		}
		p.logger.Debug("lua.plugin.loaded", append(args, "plugin", p.name)...)
	}()

	return fn()
}

// Close releases the Lua state. It is safe to call more than once.
func (p *Plugin) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.L.Close()
}

// log(level, msg, key, value, ...)
func (p *Plugin) log(L *lua.LState) int {
	level := L.CheckString(1)
	msg := L.CheckString(2)

	bridge := NewBridge(L)
	args := []any{"plugin", p.name}
	for i := 3; i+1 <= L.GetTop(); i += 2 {
		args = append(args, L.Get(i).String(), bridge.ToGoValue(L.Get(i+1)))
	}

	lvl, err := logging.ParseLevel(level)
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}

	switch lvl {
	case logging.LogLevelDebug:
		p.logger.Debug(msg, args...)
	case logging.LogLevelWarn:
		p.logger.Warn(msg, args...)
	case logging.LogLevelError:
		p.logger.Error(msg, args...)
	default:
		p.logger.Info(msg, args...)
	}

	return 0
}
