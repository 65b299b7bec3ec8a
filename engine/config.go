package engine

import (
	"github.com/hupe1980/hookmesh/logging"
)

// Config defines tuning parameters for a Table.
//
// Example:
//
//	cfg := engine.DefaultConfig
//	cfg.MaxDepth = 32
//	table := engine.New(func(o *engine.Options) { o.Config = cfg })
type Config struct {
	// DefaultPriority is used by Register when WithPriority is not given.
	// Lower priorities run earlier.
	DefaultPriority int

	// DefaultArity is used by Register when WithArity is not given. It caps
	// how many positional arguments a callback receives.
	DefaultArity int

	// AllHook names the catch-all hook whose callbacks run before every other
	// dispatch, receiving the dispatched hook's name as first argument.
	// Empty disables the catch-all hook.
	AllHook string

	// MaxDepth bounds how deeply dispatches may nest across the whole table.
	// 0 means unlimited.
	MaxDepth int
}

// DefaultConfig provides the conventional defaults: priority 10, arity 1
// and a catch-all hook named "all".
var DefaultConfig = Config{
	DefaultPriority: 10,
	DefaultArity:    1,
	AllHook:         "all",
	MaxDepth:        0,
}

// Options configures a Table instance using the functional options pattern.
//
// Example:
//
//	table := engine.New(func(o *engine.Options) {
//	    o.Logger = myLogger
//	    o.Observers = append(o.Observers, NewLoggingObserver(AfterDispatch, myLogger))
//	})
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Logger provides structured logging. Defaults to a NoOp logger.
	Logger logging.Logger

	// Observers are registered with the table's ObserverManager at construction.
	Observers []Observer
}

// RegisterOption customizes a single registration.
type RegisterOption func(o *registerOptions)

type registerOptions struct {
	priority int
	arity    int
}

// WithPriority sets the priority of a registration. Lower runs earlier.
func WithPriority(priority int) RegisterOption {
	return func(o *registerOptions) { o.priority = priority }
}

// WithArity sets how many leading arguments the callback receives.
func WithArity(arity int) RegisterOption {
	return func(o *registerOptions) { o.arity = arity }
}
