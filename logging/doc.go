// Package logging provides a minimal logging interface and adapters for hookmesh.
//
// The Logger interface defines the key/value logging methods (Debug, Info,
// Warn, Error) that registries and tables use for observability. This package
// includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - HookLogger with hook and dispatch context helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelDebug, "text", false)
//	table := engine.New(func(o *engine.Options) { o.Logger = logger })
package logging
