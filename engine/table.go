package engine

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/hookmesh/core"
	"github.com/hupe1980/hookmesh/logging"
	"github.com/hupe1980/hookmesh/registry"
	"go.uber.org/atomic"
)

// Table maps hook names to callback registries and dispatches them.
//
// Concurrency Model:
//   - Bookkeeping (name map, counters, dispatch stack) is guarded by a mutex
//   - No lock is held while a callback runs, so callbacks may re-enter freely
//   - The dispatch stack models one logical call stack; dispatching from
//     several goroutines at once is not supported
//
// Lifecycle:
//   - A registry is created on the first Register for a name
//   - It is dropped once it has no callbacks and no dispatch of it is running
type Table struct {
	config    Config
	logger    logging.Logger
	observers *ObserverManager
	limiter   *core.DepthLimiter

	mu     sync.Mutex
	hooks  map[string]*registry.Registry
	counts map[string]*atomic.Int64
	stack  []string
}

// New creates a new Table with DefaultConfig, a NoOp logger and no observers
// unless overridden.
//
// Example:
//
//	table := engine.New(func(o *engine.Options) {
//	    o.Config.MaxDepth = 64
//	    o.Logger = logger
//	})
func New(optFns ...func(o *Options)) *Table {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	t := &Table{
		config:    opts.Config,
		logger:    opts.Logger,
		observers: NewObserverManager(),
		limiter:   core.NewDepthLimiter(opts.Config.MaxDepth),
		hooks:     make(map[string]*registry.Registry),
		counts:    make(map[string]*atomic.Int64),
	}

	for _, o := range opts.Observers {
		t.observers.Register(o)
	}

	return t
}

// Config returns the table's configuration.
func (t *Table) Config() Config { return t.config }

// Observers returns the lifecycle observer manager.
func (t *Table) Observers() *ObserverManager { return t.observers }

// Register adds cb to the named hook. Priority and arity default to
// Config.DefaultPriority and Config.DefaultArity.
//
// Registering a callback whose key is already present at the same priority
// replaces it in place. The same callback may be registered at several
// priorities; each registration runs.
//
// Errors:
//   - core.ErrEmptyHookName for an empty name
//   - core.ErrNilCallback for a nil callback
//   - core.ErrInvalidArity for a negative arity or one the callback's
//     signature cannot accept
func (t *Table) Register(name string, cb core.Callback, optFns ...RegisterOption) error {
	if name == "" {
		return core.ErrEmptyHookName
	}
	if cb == nil {
		return core.ErrNilCallback
	}

	o := registerOptions{priority: t.config.DefaultPriority, arity: t.config.DefaultArity}
	for _, fn := range optFns {
		fn(&o)
	}

	if o.arity < 0 {
		return fmt.Errorf("%w: %d is negative", core.ErrInvalidArity, o.arity)
	}
	if l, ok := cb.(core.ArgLimiter); ok {
		minArgs, maxArgs := l.ArgRange()
		if o.arity < minArgs || (maxArgs >= 0 && o.arity > maxArgs) {
			return fmt.Errorf("%w: %s accepts %s arguments, got arity %d", core.ErrInvalidArity, cb.Key(), argRange(minArgs, maxArgs), o.arity)
		}
	}

	t.mu.Lock()
	r, ok := t.hooks[name]
	if !ok {
		r = registry.New(name, func(ro *registry.Options) { ro.Logger = t.logger })
		t.hooks[name] = r
	}
	t.mu.Unlock()

	r.Add(cb, o.priority, o.arity)

	t.logRegistration(name, cb.Key(), o.priority, o.arity, true)

	return nil
}

func (t *Table) logRegistration(name string, key core.Key, priority, arity int, added bool) {
	if hl, ok := t.logger.(*logging.HookLogger); ok {
		hl.LogRegistration(name, key.String(), priority, arity, added)
		return
	}

	if added {
		t.logger.Debug("hook.register", "hook", name, "callback", key.String(), "priority", priority, "arity", arity)
		return
	}
	t.logger.Debug("hook.unregister", "hook", name, "callback", key.String(), "priority", priority)
}

func argRange(minArgs, maxArgs int) string {
	switch {
	case maxArgs < 0:
		return fmt.Sprintf("at least %d", minArgs)
	case minArgs == maxArgs:
		return fmt.Sprintf("exactly %d", minArgs)
	default:
		return fmt.Sprintf("%d to %d", minArgs, maxArgs)
	}
}

// Unregister removes the callback identified by key at priority and reports
// whether it was registered there.
func (t *Table) Unregister(name string, key core.Key, priority int) bool {
	r := t.lookup(name)
	if r == nil {
		return false
	}

	removed := r.Remove(key, priority)
	t.prune(name, r)

	if removed {
		t.logRegistration(name, key, priority, 0, false)
	}

	return removed
}

// UnregisterAll removes every callback of the named hook.
func (t *Table) UnregisterAll(name string) {
	r := t.lookup(name)
	if r == nil {
		return
	}

	r.Clear()
	t.prune(name, r)
}

// UnregisterPriority removes every callback of the named hook at priority and
// reports whether there were any.
func (t *Table) UnregisterPriority(name string, priority int) bool {
	r := t.lookup(name)
	if r == nil {
		return false
	}

	removed := r.RemovePriority(priority)
	t.prune(name, r)

	return removed
}

// Has reports whether the named hook has any callbacks.
func (t *Table) Has(name string) bool {
	r := t.lookup(name)
	return r != nil && r.HasCallbacks()
}

// Priority returns the lowest priority at which key is registered on the
// named hook.
func (t *Table) Priority(name string, key core.Key) (int, bool) {
	r := t.lookup(name)
	if r == nil {
		return 0, false
	}
	return r.Priority(key)
}

// Registrations lists the callbacks of the named hook in dispatch order.
func (t *Table) Registrations(name string) []registry.Registration {
	r := t.lookup(name)
	if r == nil {
		return nil
	}
	return r.Registrations()
}

// Names returns the names of all hooks with callbacks, sorted.
func (t *Table) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.hooks))
	for name, r := range t.hooks {
		if r.HasCallbacks() {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}

// ApplyFilters threads value through the callbacks of the named hook and
// returns the result. args are passed after the value.
func (t *Table) ApplyFilters(name string, value any, args ...any) (any, error) {
	return t.ApplyFiltersArgs(name, append([]any{value}, args...))
}

// ApplyFiltersArgs is ApplyFilters with the value as args[0]. The caller's
// slice is not modified.
func (t *Table) ApplyFiltersArgs(name string, args []any) (any, error) {
	args = slices.Clone(args)

	var value any
	if len(args) > 0 {
		value = args[0]
	}

	return t.dispatch(name, ModeFilter, value, args)
}

// DoAction runs the callbacks of the named hook for their side effects and
// counts the dispatch, even when the hook has no callbacks.
func (t *Table) DoAction(name string, args ...any) error {
	return t.DoActionArgs(name, args)
}

// DoActionArgs is DoAction with the arguments as a slice. The caller's slice
// is not modified. The action is counted once it passes the depth limit and
// the BeforeDispatch observers.
func (t *Table) DoActionArgs(name string, args []any) error {
	_, err := t.dispatch(name, ModeAction, nil, slices.Clone(args))

	return err
}

// Count returns how many times the named hook has been dispatched as an
// action, recursive dispatches included.
func (t *Table) Count(name string) int {
	t.mu.Lock()
	c, ok := t.counts[name]
	t.mu.Unlock()

	if !ok {
		return 0
	}
	return int(c.Load())
}

// IsDispatching reports whether the named hook is being dispatched anywhere
// on the stack. An empty name asks whether any hook is being dispatched.
func (t *Table) IsDispatching(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == "" {
		return len(t.stack) > 0
	}
	return slices.Contains(t.stack, name)
}

// Current returns the innermost hook being dispatched.
func (t *Table) Current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.stack) == 0 {
		return "", false
	}
	return t.stack[len(t.stack)-1], true
}

// Stack returns the hook names being dispatched, outermost first.
func (t *Table) Stack() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.stack)
}

func (t *Table) dispatch(name string, mode DispatchMode, value any, args []any) (any, error) {
	if err := t.limiter.Enter(); err != nil {
		return value, fmt.Errorf("hook %q: %w", name, err)
	}
	defer t.limiter.Leave()

	info := &DispatchInfo{
		DispatchID: uuid.NewString(),
		Hook:       name,
		Mode:       mode,
		Depth:      t.limiter.Depth(),
		Args:       args,
	}

	if err := t.observers.Notify(BeforeDispatch, info); err != nil {
		t.dispatchLogger(name, info.DispatchID).Debug("hook.dispatch.vetoed", "error", err)
		return value, err
	}

	if mode == ModeAction {
		t.counter(name).Inc()
	}

	start := time.Now()

	t.push(name)
	defer t.pop()

	out, err := t.run(name, mode, value, args)
	info.Duration = time.Since(start)

	if err != nil {
		info.Err = err
		if oerr := t.observers.Notify(OnError, info); oerr != nil {
			t.dispatchLogger(name, info.DispatchID).Warn("hook.observer.failed", "error", oerr)
		}
		return out, err
	}

	info.Value = out

	if err := t.observers.Notify(AfterDispatch, info); err != nil {
		return out, err
	}

	return out, nil
}

// run invokes the catch-all hook, then the named hook.
func (t *Table) run(name string, mode DispatchMode, value any, args []any) (any, error) {
	if all := t.config.AllHook; all != "" && name != all {
		if r := t.lookup(all); r != nil {
			err := r.RunAll(append([]any{name}, args...))
			t.prune(all, r)
			if err != nil {
				return value, err
			}
		}
	}

	r := t.lookup(name)
	if r == nil {
		return value, nil
	}
	defer t.prune(name, r)

	if mode == ModeAction {
		return nil, r.RunAction(args)
	}

	return r.Apply(value, args)
}

// dispatchLogger scopes a *logging.HookLogger to one dispatch. Other loggers
// get the hook and dispatch ID as plain attributes.
func (t *Table) dispatchLogger(name, dispatchID string) logging.Logger {
	if hl, ok := t.logger.(*logging.HookLogger); ok {
		return hl.WithDispatch(name, dispatchID)
	}
	return &scopedLogger{Logger: t.logger, args: []any{"hook", name, "dispatch_id", dispatchID}}
}

func (t *Table) lookup(name string) *registry.Registry {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.hooks[name]
}

// prune drops r from the table when it is empty and idle.
func (t *Table) prune(name string, r *registry.Registry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hooks[name] != r || r.HasCallbacks() || r.Dispatching() {
		return
	}
	delete(t.hooks, name)
}

func (t *Table) counter(name string) *atomic.Int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counts[name]
	if !ok {
		c = atomic.NewInt64(0)
		t.counts[name] = c
	}
	return c
}

func (t *Table) push(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stack = append(t.stack, name)
}

func (t *Table) pop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.stack) > 0 {
		t.stack = t.stack[:len(t.stack)-1]
	}
}

// scopedLogger prepends fixed attributes to every record.
type scopedLogger struct {
	logging.Logger
	args []any
}

func (l *scopedLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, l.with(args)...) }
func (l *scopedLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, l.with(args)...) }
func (l *scopedLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, l.with(args)...) }
func (l *scopedLogger) Error(msg string, args ...any) { l.Logger.Error(msg, l.with(args)...) }

func (l *scopedLogger) with(args []any) []any {
	return append(slices.Clone(l.args), args...)
}
