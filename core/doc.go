// Package core provides the foundational types shared by every hookmesh layer:
//
//   - Callback, the invocable unit stored in a hook registry
//   - Key, the identity of a callback used for duplicate detection and removal
//   - Invoke, the arity-capped call helper used by dispatch loops
//   - sentinel errors and DispatchError for failures that cross a dispatch
//   - DepthLimiter, a guard against runaway recursive dispatch
//
// The package has no knowledge of registries or tables; those live in the
// registry and engine packages and only depend on the contracts defined here.
package core
