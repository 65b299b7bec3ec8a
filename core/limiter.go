package core

import (
	"fmt"
	"sync"
)

// DepthLimiter bounds how deeply dispatches may nest.
type DepthLimiter struct {
	max   int
	depth int
	mu    sync.Mutex
}

// NewDepthLimiter creates a limiter allowing at most max nested dispatches.
// If max == 0, nesting is unlimited.
func NewDepthLimiter(max int) *DepthLimiter {
	return &DepthLimiter{max: max}
}

// Enter records one more level of nesting and returns an error if the limit
// would be exceeded. A failed Enter must not be paired with Leave.
func (dl *DepthLimiter) Enter() error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.max > 0 && dl.depth >= dl.max {
		return fmt.Errorf("%w: %d", ErrMaxDepthExceeded, dl.max)
	}
	dl.depth++

	return nil
}

// Leave undoes one successful Enter.
func (dl *DepthLimiter) Leave() {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.depth > 0 {
		dl.depth--
	}
}

// Depth returns the current nesting depth.
func (dl *DepthLimiter) Depth() int {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	return dl.depth
}
