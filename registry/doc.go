// Package registry implements the per-hook callback registry and its
// mutation-safe dispatch loop.
//
// A Registry stores callbacks in priority buckets (lower priorities run
// first, callbacks inside one bucket run in registration order) and keeps one
// iteration cursor per dispatch that is currently on the stack. Callbacks may
// add or remove callbacks, or dispatch the same hook again, while a dispatch
// is running. Every structural change re-synchronizes all live cursors so
// that, for each dispatch:
//
//   - callbacks present for the whole dispatch run exactly once
//   - callbacks added at a priority not yet reached run exactly once
//   - callbacks added at a priority already passed wait for the next dispatch
//   - callbacks removed before they are reached do not run
//
// Registries are not meant to be shared between goroutines that dispatch in
// parallel; the internal mutex only protects bookkeeping and is never held
// while a callback runs, which is what makes re-entrant use possible.
package registry
