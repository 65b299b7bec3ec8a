package registry

import (
	"slices"
	"sort"
	"sync"

	"github.com/hupe1980/hookmesh/core"
	"github.com/hupe1980/hookmesh/logging"
	"github.com/keboola/go-utils/pkg/orderedmap"
)

// entry is one registered callback inside a priority bucket.
type entry struct {
	callback core.Callback
	arity    int
}

// Registration describes a registered callback for introspection.
type Registration struct {
	Priority int
	Key      core.Key
	Arity    int
}

type mode int

const (
	modeFilter mode = iota
	modeAction
	modeAll
)

// Options configures a Registry.
type Options struct {
	// Logger receives debug output about cursor reconciliation.
	Logger logging.Logger
}

// Registry holds the priority-ordered callbacks of one hook.
type Registry struct {
	name   string
	logger logging.Logger

	mu sync.Mutex
	// buckets maps priority to an insertion-ordered map of key string to *entry.
	buckets map[int]*orderedmap.OrderedMap
	// priorities caches the ascending keys of buckets.
	priorities []int
	// iterations is the stack of cursors of the dispatches on the call stack.
	iterations []*iteration
	inAction   bool
}

// New creates an empty registry for the named hook. The name is only used in
// errors and logs.
func New(name string, optFns ...func(o *Options)) *Registry {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Registry{
		name:    name,
		logger:  opts.Logger,
		buckets: make(map[int]*orderedmap.OrderedMap),
	}
}

// Name returns the hook name the registry was created for.
func (r *Registry) Name() string { return r.name }

// Add registers cb at priority with the given arity. A callback with the same
// key at the same priority is replaced in place. Add always reports true.
func (r *Registry) Add(cb core.Callback, priority, arity int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, exists := r.buckets[priority]
	if !exists {
		b = orderedmap.New()
		r.buckets[priority] = b
	}
	b.Set(cb.Key().String(), &entry{callback: cb, arity: arity})

	if !exists {
		r.restructureLocked()
	}

	return true
}

// Remove deletes the callback identified by key at priority and reports
// whether it was registered there.
func (r *Registry) Remove(key core.Key, priority int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[priority]
	if !ok {
		return false
	}

	k := key.String()
	if _, found := b.Get(k); !found {
		return false
	}
	b.Delete(k)

	if b.Len() == 0 {
		delete(r.buckets, priority)
		r.restructureLocked()
	}

	return true
}

// RemovePriority deletes every callback at priority and reports whether the
// bucket existed.
func (r *Registry) RemovePriority(priority int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buckets[priority]; !ok {
		return false
	}
	delete(r.buckets, priority)
	r.restructureLocked()

	return true
}

// Clear deletes every callback. Running dispatches end after the callback
// currently executing returns.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buckets = make(map[int]*orderedmap.OrderedMap)
	r.restructureLocked()
}

// HasCallbacks reports whether any callback is registered.
func (r *Registry) HasCallbacks() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.buckets) > 0
}

// Priority returns the lowest priority at which key is registered.
func (r *Registry) Priority(key core.Key) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key.String()
	for _, p := range r.priorities {
		if _, found := r.buckets[p].Get(k); found {
			return p, true
		}
	}

	return 0, false
}

// Len returns the number of registered callbacks across all priorities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, b := range r.buckets {
		n += b.Len()
	}

	return n
}

// Priorities returns the registered priorities in ascending order.
func (r *Registry) Priorities() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.priorities)
}

// Registrations lists every callback in dispatch order.
func (r *Registry) Registrations() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Registration
	for _, p := range r.priorities {
		b := r.buckets[p]
		for _, k := range b.Keys() {
			v, _ := b.Get(k)
			e := v.(*entry)
			out = append(out, Registration{Priority: p, Key: e.callback.Key(), Arity: e.arity})
		}
	}

	return out
}

// Depth returns the number of dispatches of this registry on the call stack.
func (r *Registry) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.iterations)
}

// Dispatching reports whether a dispatch of this registry is in progress.
func (r *Registry) Dispatching() bool { return r.Depth() > 0 }

// CurrentPriority returns the priority being processed by the innermost
// dispatch. It reports false when no dispatch is active or the innermost one
// has no priority left.
func (r *Registry) CurrentPriority() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.iterations) == 0 {
		return 0, false
	}

	return r.iterations[len(r.iterations)-1].current()
}

// Apply runs the registry as a filter. Before each callback the threaded
// value is written to args[0]; each callback's result becomes the new value.
// The final value is returned. With no callbacks, seed is returned unchanged.
//
// While an action dispatch of this registry is on the stack, args[0] is left
// as the caller passed it.
func (r *Registry) Apply(seed any, args []any) (any, error) {
	return r.dispatch(seed, args, modeFilter)
}

// RunAction runs the registry as an action: callbacks receive args as given
// and their results are discarded. The in-action flag is restored to its
// previous value on return, so an action nested in a filter of the same
// registry does not stop that filter from threading.
func (r *Registry) RunAction(args []any) error {
	r.mu.Lock()
	prev := r.inAction
	r.inAction = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inAction = prev && len(r.iterations) > 0
		r.mu.Unlock()
	}()

	_, err := r.dispatch(nil, args, modeAction)

	return err
}

// RunAll runs the registry as a catch-all observer. Every callback receives
// all of args regardless of its arity.
func (r *Registry) RunAll(args []any) error {
	_, err := r.dispatch(nil, args, modeAll)
	return err
}

func (r *Registry) dispatch(value any, args []any, m mode) (any, error) {
	it, ok := r.push()
	if !ok {
		return value, nil
	}
	defer r.pop(it)

	for {
		priority, keys, ok := r.enter(it)
		if !ok {
			return value, nil
		}

		for _, k := range keys {
			e, found := r.lookup(priority, k)
			if !found {
				continue
			}

			var (
				out any
				err error
			)

			switch m {
			case modeAll:
				out, err = e.callback.Call(args...)
			case modeFilter:
				if len(args) > 0 && !r.suspended() {
					args[0] = value
				}
				out, err = core.Invoke(e.callback, e.arity, args)
			default:
				out, err = core.Invoke(e.callback, e.arity, args)
			}

			if err != nil {
				return value, &core.DispatchError{Hook: r.name, Priority: priority, Key: e.callback.Key(), Err: err}
			}

			if m == modeFilter {
				value = out
			}
		}

		r.mu.Lock()
		it.advance()
		r.mu.Unlock()
	}
}

// push starts a new iteration over the current priorities. It reports false
// when there is nothing to iterate.
func (r *Registry) push() (*iteration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.priorities) == 0 {
		return nil, false
	}

	it := newIteration(r.priorities)
	r.iterations = append(r.iterations, it)

	return it, true
}

// pop removes it from the iteration stack. Dispatches unwind in LIFO order,
// so it is normally the top entry.
func (r *Registry) pop(it *iteration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.iterations) - 1; i >= 0; i-- {
		if r.iterations[i] == it {
			r.iterations = slices.Delete(r.iterations, i, i+1)
			break
		}
	}

	if len(r.iterations) == 0 {
		r.inAction = false
	}
}

// enter returns the priority the cursor points at together with a snapshot
// of that bucket's key order. Callbacks added to the bucket after this point
// are left for the next dispatch.
func (r *Registry) enter(it *iteration) (int, []string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		priority, ok := it.current()
		if !ok {
			return 0, nil, false
		}
		if b, exists := r.buckets[priority]; exists {
			return priority, slices.Clone(b.Keys()), true
		}
		it.advance()
	}
}

// lookup re-resolves a key inside the bucket at priority, so callbacks removed
// after the bucket was entered are skipped and replaced ones use the latest entry.
func (r *Registry) lookup(priority int, k string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[priority]
	if !ok {
		return nil, false
	}

	v, found := b.Get(k)
	if !found {
		return nil, false
	}

	return v.(*entry), true
}

func (r *Registry) suspended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.inAction
}

// restructureLocked rebuilds the ascending priority cache and reconciles every
// live cursor against it.
func (r *Registry) restructureLocked() {
	priorities := make([]int, 0, len(r.buckets))
	for p := range r.buckets {
		priorities = append(priorities, p)
	}
	sort.Ints(priorities)
	r.priorities = priorities

	if len(r.iterations) == 0 {
		return
	}

	for _, it := range r.iterations {
		it.resort(priorities)
	}

	r.logger.Debug("registry.resort", "hook", r.name, "priorities", len(priorities), "iterations", len(r.iterations))
}
