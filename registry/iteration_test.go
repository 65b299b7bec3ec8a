package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIteration_Resort(t *testing.T) {
	tests := []struct {
		name      string
		snapshot  []int
		index     int
		updated   []int
		wantCur   int
		wantOK    bool
		wantAfter []int // priorities visited after the current one
	}{
		{
			name:      "insert ahead of cursor",
			snapshot:  []int{10, 20},
			updated:   []int{10, 15, 20},
			wantCur:   10,
			wantOK:    true,
			wantAfter: []int{15, 20},
		},
		{
			name:      "insert behind cursor",
			snapshot:  []int{10, 20},
			index:     1,
			updated:   []int{5, 10, 20},
			wantCur:   20,
			wantOK:    true,
			wantAfter: nil,
		},
		{
			name:      "current priority removed",
			snapshot:  []int{10, 20, 30},
			updated:   []int{20, 30},
			wantCur:   10,
			wantOK:    true,
			wantAfter: []int{20, 30},
		},
		{
			name:      "current priority removed between remaining",
			snapshot:  []int{10, 20, 30},
			index:     1,
			updated:   []int{10, 30},
			wantCur:   20,
			wantOK:    true,
			wantAfter: []int{30},
		},
		{
			name:      "current priority above every remaining one",
			snapshot:  []int{5, 10},
			index:     1,
			updated:   []int{5},
			wantCur:   10,
			wantOK:    true,
			wantAfter: nil,
		},
		{
			name:      "upcoming priority removed",
			snapshot:  []int{10, 20, 30},
			updated:   []int{10, 30},
			wantCur:   10,
			wantOK:    true,
			wantAfter: []int{30},
		},
		{
			name:     "everything removed",
			snapshot: []int{10, 20},
			updated:  nil,
			wantOK:   false,
		},
		{
			name:      "current priority re-created",
			snapshot:  []int{20},
			updated:   []int{10, 20, 30},
			wantCur:   20,
			wantOK:    true,
			wantAfter: []int{30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := newIteration(tt.snapshot)
			it.index = tt.index

			it.resort(tt.updated)

			cur, ok := it.current()
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantCur, cur)

			var after []int
			for it.advance(); ; it.advance() {
				p, ok := it.current()
				if !ok {
					break
				}
				after = append(after, p)
			}
			assert.Equal(t, tt.wantAfter, after)
		})
	}
}

func TestIteration_ResortLeavesFinishedCursorAlone(t *testing.T) {
	it := newIteration([]int{10})
	it.advance()

	it.resort([]int{10, 20})

	_, ok := it.current()
	assert.False(t, ok)
	assert.Equal(t, []int{10}, it.priorities)
}

func TestIteration_SnapshotIsCopied(t *testing.T) {
	src := []int{1, 2}
	it := newIteration(src)
	src[0] = 99

	cur, ok := it.current()
	assert.True(t, ok)
	assert.Equal(t, 1, cur)
}
