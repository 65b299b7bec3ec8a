package registry

import (
	"slices"
	"sort"
)

// iteration is the cursor of one active dispatch: an ascending snapshot of
// priorities and the index of the priority being processed.
type iteration struct {
	priorities []int
	index      int
}

func newIteration(priorities []int) *iteration {
	return &iteration{priorities: slices.Clone(priorities)}
}

// current returns the priority being processed, or false once the cursor
// has run off the end of its snapshot.
func (it *iteration) current() (int, bool) {
	if it.index < 0 || it.index >= len(it.priorities) {
		return 0, false
	}
	return it.priorities[it.index], true
}

func (it *iteration) advance() {
	it.index++
}

// resort replaces the snapshot with the registry's new ascending priority
// list while keeping the cursor on the priority it is processing.
//
// If that priority no longer exists it stays in the snapshot as a placeholder
// at its ordered slot, so the next advance lands on the nearest remaining
// priority above it. A priority that appears below the cursor is never
// visited; one that appears above it is. Finished cursors are left alone and
// an empty list finishes every cursor.
func (it *iteration) resort(priorities []int) {
	cur, ok := it.current()
	if !ok {
		return
	}

	if len(priorities) == 0 {
		it.priorities = nil
		it.index = 0
		return
	}

	i := sort.SearchInts(priorities, cur)

	snapshot := make([]int, 0, len(priorities)+1)
	snapshot = append(snapshot, priorities[:i]...)
	if i == len(priorities) || priorities[i] != cur {
		snapshot = append(snapshot, cur)
	}
	snapshot = append(snapshot, priorities[i:]...)

	it.priorities = snapshot
	it.index = i
}
