package testutil

import (
	"slices"
	"sync"

	"github.com/hupe1980/hookmesh/core"
)

// Call is one recorded callback invocation.
type Call struct {
	Name string
	Args []any
}

// Recorder collects callback invocations in order.
// Example:
//
//	rec := NewRecorder()
//	reg.Add(rec.Callback("f1", nil), 10, 1)
//	reg.RunAction(nil)
//	assert.Equal(t, []string{"f1"}, rec.Names())
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Record appends an invocation.
func (r *Recorder) Record(name string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Name: name, Args: slices.Clone(args)})
}

// Callback returns a Named callback that records itself, runs then (if not
// nil) and returns its first argument, which makes it a pass-through filter.
func (r *Recorder) Callback(name string, then func(args ...any)) core.Callback {
	return core.Named(name, func(args ...any) (any, error) {
		r.Record(name, args...)
		if then != nil {
			then(args...)
		}
		if len(args) == 0 {
			return nil, nil
		}
		return args[0], nil
	})
}

// Names returns the recorded callback names in invocation order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.calls))
	for i, c := range r.calls {
		names[i] = c.Name
	}
	return names
}

// Calls returns a copy of every recorded invocation.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Count returns how often name was invoked.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Reset forgets all recorded invocations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
