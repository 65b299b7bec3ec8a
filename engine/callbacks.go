package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/hookmesh/logging"
)

// ObserverType defines the lifecycle points of a dispatch where observers run.
//
// Observers are the table's own extension points: they see every dispatch
// without being registered on any hook, which makes them suitable for
// logging, metrics and tracing. They are not visible to IsDispatching and do
// not take part in the catch-all hook.
type ObserverType string

const (
	// BeforeDispatch is triggered before any callback of a dispatch runs.
	// Returning an error aborts the dispatch.
	BeforeDispatch ObserverType = "before_dispatch"

	// AfterDispatch is triggered after a dispatch completed without error.
	AfterDispatch ObserverType = "after_dispatch"

	// OnError is triggered when a dispatch failed.
	OnError ObserverType = "on_error"
)

// DispatchMode tells filters and actions apart.
type DispatchMode string

const (
	// ModeFilter marks ApplyFilters dispatches.
	ModeFilter DispatchMode = "filter"
	// ModeAction marks DoAction dispatches.
	ModeAction DispatchMode = "action"
)

// DispatchInfo describes one dispatch to observers.
type DispatchInfo struct {
	// DispatchID uniquely identifies the dispatch.
	DispatchID string

	// Hook is the dispatched hook name.
	Hook string

	// Mode is filter or action.
	Mode DispatchMode

	// Depth is the number of dispatches on the table's stack, this one included.
	Depth int

	// Args are the arguments passed to the dispatch.
	Args []any

	// Value is the filtered value. Set for AfterDispatch on filters.
	Value any

	// Err is the failure. Set for OnError.
	Err error

	// Duration is the wall time of the dispatch. Zero for BeforeDispatch.
	Duration time.Duration
}

// Observer is a lifecycle callback of the table.
type Observer interface {
	// Type returns the lifecycle point this observer handles.
	Type() ObserverType

	// Observe is called with the dispatch details. An error returned from a
	// BeforeDispatch observer aborts the dispatch.
	Observe(info *DispatchInfo) error
}

// FunctionObserver wraps a function as an Observer.
//
// Example:
//
//	counter := NewFunctionObserver(AfterDispatch, func(info *DispatchInfo) error {
//	    metrics.Inc(info.Hook)
//	    return nil
//	})
type FunctionObserver struct {
	observerType ObserverType
	fn           func(info *DispatchInfo) error
}

// NewFunctionObserver creates a function-based observer.
func NewFunctionObserver(observerType ObserverType, fn func(info *DispatchInfo) error) *FunctionObserver {
	return &FunctionObserver{observerType: observerType, fn: fn}
}

// Type returns the observer type this function handles.
func (o *FunctionObserver) Type() ObserverType { return o.observerType }

// Observe calls the wrapped function.
func (o *FunctionObserver) Observe(info *DispatchInfo) error {
	if o.fn == nil {
		return nil
	}
	return o.fn(info)
}

// ObserverManager keeps the observers of a table and runs them in
// registration order. Observers may be added while dispatches are running;
// a notification works on a snapshot taken when it starts.
type ObserverManager struct {
	mu        sync.RWMutex
	observers map[ObserverType][]Observer
}

// NewObserverManager creates an empty manager.
func NewObserverManager() *ObserverManager {
	return &ObserverManager{observers: make(map[ObserverType][]Observer)}
}

// Register adds an observer for its type.
func (m *ObserverManager) Register(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers[o.Type()] = append(m.observers[o.Type()], o)
}

// Len returns how many observers are registered for observerType.
func (m *ObserverManager) Len(observerType ObserverType) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observers[observerType])
}

// Notify runs all observers of observerType. The first error stops the run
// and is returned.
func (m *ObserverManager) Notify(observerType ObserverType, info *DispatchInfo) error {
	m.mu.RLock()
	observers := make([]Observer, len(m.observers[observerType]))
	copy(observers, m.observers[observerType])
	m.mu.RUnlock()

	for _, o := range observers {
		if err := o.Observe(info); err != nil {
			return fmt.Errorf("%s observer: %w", observerType, err)
		}
	}

	return nil
}

// LoggingObserver writes one log record per observed dispatch.
//
// Example:
//
//	obs := NewLoggingObserver(AfterDispatch, logger)
type LoggingObserver struct {
	observerType ObserverType
	logger       logging.Logger
}

// NewLoggingObserver creates a logging observer. A nil logger silences it.
func NewLoggingObserver(observerType ObserverType, logger logging.Logger) *LoggingObserver {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LoggingObserver{observerType: observerType, logger: logger}
}

// Type returns the observer type this logger handles.
func (o *LoggingObserver) Type() ObserverType { return o.observerType }

// Observe logs the dispatch. It never fails. A *logging.HookLogger is scoped
// to the dispatch and records completions through LogDispatch.
func (o *LoggingObserver) Observe(info *DispatchInfo) error {
	if hl, ok := o.logger.(*logging.HookLogger); ok && o.observerType != BeforeDispatch {
		hl.WithDispatch(info.Hook, info.DispatchID).LogDispatch(string(info.Mode), info.Depth, info.Duration, info.Err)
		return nil
	}

	args := []any{
		"hook", info.Hook,
		"mode", string(info.Mode),
		"dispatch_id", info.DispatchID,
		"depth", info.Depth,
	}

	switch o.observerType {
	case OnError:
		o.logger.Error("hook.dispatch.error", append(args, "error", info.Err, "duration", info.Duration)...)
	case AfterDispatch:
		o.logger.Info("hook.dispatch.done", append(args, "duration", info.Duration)...)
	default:
		o.logger.Debug("hook.dispatch.start", args...)
	}

	return nil
}
