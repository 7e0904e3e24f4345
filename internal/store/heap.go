package store

import (
	"container/heap"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/keys"
)

// fireEntry is a lazily-invalidated heap entry: a trigger's (fireTime,
// priority) snapshot at the moment it was pushed. acquireNextTriggers
// re-validates each popped entry against the live trigger before using it,
// so a reschedule or pause between push and pop is never acted on stale.
type fireEntry struct {
	key      keys.TriggerKey
	fireTime time.Time
	priority int
	index    int
}

// fireHeap orders waiting triggers for acquisition: earliest fire time,
// then higher priority, then lexicographic key (spec §4.3 step 2).
type fireHeap []*fireEntry

func (h fireHeap) Len() int { return len(h) }

func (h fireHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if !a.fireTime.Equal(b.fireTime) {
		return a.fireTime.Before(b.fireTime)
	}
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.key.Less(b.key)
}

func (h fireHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *fireHeap) Push(x any) {
	e := x.(*fireEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *fireHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

func newFireHeap() *fireHeap {
	h := &fireHeap{}
	heap.Init(h)
	return h
}

func (h *fireHeap) pushEntry(e *fireEntry) { heap.Push(h, e) }

func (h *fireHeap) popEntry() *fireEntry {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*fireEntry)
}

func (h *fireHeap) peek() *fireEntry {
	if h.Len() == 0 {
		return nil
	}
	return (*h)[0]
}
