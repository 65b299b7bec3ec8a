// Package engine implements the hook table: the aggregation layer that maps
// hook names to priority-ordered callback registries and dispatches them.
//
// The Table is the component most applications talk to. It owns one
// registry.Registry per hook name, creating registries lazily on first
// registration and dropping them once their last callback is gone and no
// dispatch of them is running.
//
// # Core Responsibilities
//
// Registration:
//   - Validation of hook names, callbacks and arities at the boundary
//   - Default priority and arity from Config
//   - Lookup of a callback's priority by identity key
//
// Dispatch:
//   - Filters (ApplyFilters) thread a value through every callback
//   - Actions (DoAction) run callbacks for their side effects and are counted
//   - The catch-all hook (Config.AllHook) observes every other dispatch
//   - A stack of hook names currently being dispatched
//   - Optional nesting limit against runaway recursion
//
// Lifecycle Callbacks:
//   - BeforeDispatch, AfterDispatch and OnError observers
//   - Built-in implementations for logging and function adapters
//
// # Usage Patterns
//
//	table := engine.New(func(o *engine.Options) {
//	    o.Logger = logging.NewSlogLogger(logging.LogLevelDebug, "text", false)
//	})
//
//	func upper(args ...any) (any, error) {
//	    return strings.ToUpper(args[0].(string)), nil
//	}
//
//	_ = table.Register("title", core.Static(upper), engine.WithPriority(5))
//
//	title, err := table.ApplyFilters("title", "hello")
//
// # Re-entrancy
//
// Callbacks may register, unregister and dispatch hooks, including the hook
// that is currently running. The table never holds a lock while a callback
// runs. Each registry reconciles its in-flight dispatches on every structural
// change, so mutations made by a callback take effect immediately and
// predictably for dispatches already on the stack.
//
// # Error Handling
//
//   - Misuse (empty names, nil callbacks, bad arities) is rejected by Register
//   - A callback error stops the dispatch and is returned as *core.DispatchError
//   - Panics propagate to the caller; all bookkeeping is released by defers
//   - Lookup misses are reported as false, never as errors
package engine
