// Package hookmesh provides a high-level façade over the hook table with the
// familiar filter and action vocabulary. Most applications interact with this
// package by:
//  1. Creating a HookMesh via New()
//  2. Registering Go callbacks (AddFilter, AddAction) or Lua plugins (LoadPlugin)
//  3. Dispatching hooks (ApplyFilters, DoAction)
//
// The façade delegates to engine.Table, which can be reached through Table()
// for observers, typed helpers and introspection.
package hookmesh

import (
	"sync"

	"github.com/hupe1980/hookmesh/core"
	"github.com/hupe1980/hookmesh/engine"
	"github.com/hupe1980/hookmesh/logging"
	"github.com/hupe1980/hookmesh/luahook"
)

// Options configures the HookMesh instance.
type Options struct {
	// Table configuration (default priority and arity, catch-all hook, depth limit)
	Config engine.Config

	// Observers are registered on the table before first use.
	Observers []engine.Observer

	// LogDispatches registers logging observers for every dispatch.
	LogDispatches bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// HookMesh is the high-level façade over a hook table and its Lua plugins.
type HookMesh struct {
	opts  Options
	table *engine.Table

	mu      sync.Mutex
	plugins []*luahook.Plugin
}

// New creates a new HookMesh instance with optional overrides.
func New(optFns ...func(o *Options)) *HookMesh {
	opts := Options{
		Config: engine.DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	observers := opts.Observers
	if opts.LogDispatches {
		observers = append(observers,
			engine.NewLoggingObserver(engine.AfterDispatch, opts.Logger),
			engine.NewLoggingObserver(engine.OnError, opts.Logger),
		)
	}

	t := engine.New(func(o *engine.Options) {
		o.Config = opts.Config
		o.Logger = opts.Logger
		o.Observers = observers
	})

	return &HookMesh{opts: opts, table: t}
}

// Table returns the underlying hook table.
func (m *HookMesh) Table() *engine.Table { return m.table }

// AddFilter registers cb on the named filter.
//
// Example:
//
//	err := mesh.AddFilter("title", core.Static(trim), engine.WithPriority(5))
func (m *HookMesh) AddFilter(name string, cb core.Callback, optFns ...engine.RegisterOption) error {
	return m.table.Register(name, cb, optFns...)
}

// AddAction registers cb on the named action. Filters and actions share one
// namespace.
func (m *HookMesh) AddAction(name string, cb core.Callback, optFns ...engine.RegisterOption) error {
	return m.table.Register(name, cb, optFns...)
}

// RemoveFilter removes cb from the named filter at priority and reports
// whether it was registered there.
func (m *HookMesh) RemoveFilter(name string, cb core.Callback, priority int) bool {
	if cb == nil {
		return false
	}
	return m.table.Unregister(name, cb.Key(), priority)
}

// RemoveAction removes cb from the named action at priority.
func (m *HookMesh) RemoveAction(name string, cb core.Callback, priority int) bool {
	return m.RemoveFilter(name, cb, priority)
}

// RemoveAllFilters removes every callback of the named hook.
func (m *HookMesh) RemoveAllFilters(name string) {
	m.table.UnregisterAll(name)
}

// HasFilter reports whether the named hook has any callbacks.
func (m *HookMesh) HasFilter(name string) bool { return m.table.Has(name) }

// FilterPriority returns the priority at which cb is registered on the named
// hook.
func (m *HookMesh) FilterPriority(name string, cb core.Callback) (int, bool) {
	if cb == nil {
		return 0, false
	}
	return m.table.Priority(name, cb.Key())
}

// ApplyFilters threads value through the named filter.
func (m *HookMesh) ApplyFilters(name string, value any, args ...any) (any, error) {
	return m.table.ApplyFilters(name, value, args...)
}

// DoAction runs the named action.
func (m *HookMesh) DoAction(name string, args ...any) error {
	return m.table.DoAction(name, args...)
}

// DidAction returns how many times the named action has run.
func (m *HookMesh) DidAction(name string) int { return m.table.Count(name) }

// DoingFilter reports whether the named hook is being dispatched. An empty
// name asks whether any hook is.
func (m *HookMesh) DoingFilter(name string) bool { return m.table.IsDispatching(name) }

// CurrentFilter returns the innermost hook being dispatched, or "".
func (m *HookMesh) CurrentFilter() string {
	name, _ := m.table.Current()
	return name
}

// LoadPlugin runs a Lua script against this mesh. The plugin stays open until
// Close.
func (m *HookMesh) LoadPlugin(path string) (*luahook.Plugin, error) {
	p, err := luahook.LoadPlugin(path, m.table, func(o *luahook.PluginOptions) {
		o.Logger = m.opts.Logger
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.plugins = append(m.plugins, p)
	m.mu.Unlock()

	return p, nil
}

// Close removes the callbacks of every loaded plugin and closes their Lua
// states.
func (m *HookMesh) Close() {
	m.mu.Lock()
	plugins := m.plugins
	m.plugins = nil
	m.mu.Unlock()

	for _, p := range plugins {
		if n := m.unregisterLua(p); n > 0 {
			m.opts.Logger.Debug("plugin.unloaded", "plugin", p.Name(), "callbacks", n)
		}
		p.Close()
	}
}

// unregisterLua drops every callback that belongs to a Lua function.
func (m *HookMesh) unregisterLua(p *luahook.Plugin) int {
	n := 0
	for _, name := range m.table.Names() {
		for _, reg := range m.table.Registrations(name) {
			if luahook.Owns(p, reg.Key) && m.table.Unregister(name, reg.Key, reg.Priority) {
				n++
			}
		}
	}
	return n
}
