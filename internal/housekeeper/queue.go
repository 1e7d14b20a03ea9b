package housekeeper

import (
	"container/heap"
	"time"
)

// longSleep is the sentinel WakeUpTime returned when the queue is empty, so
// the scheduler's timer never fires spuriously on an idle queue.
const longSleep = 24 * time.Hour

// action is a single heap element: a due instant paired with the kind of
// work to run when it elapses.
type action struct {
	due  time.Time
	kind ActionKind
}

// actionHeap implements container/heap.Interface, ordering entries by due
// instant ascending so Pop always extracts the earliest.
type actionHeap []action

func (h actionHeap) Len() int            { return len(h) }
func (h actionHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h actionHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *actionHeap) Push(x any)         { *h = append(*h, x.(action)) }
func (h *actionHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is the housekeeper's delay queue: a min-heap of scheduled actions
// ordered by due instant. It is not safe for concurrent use; ownership
// stays with the scheduler goroutine for the lifetime of the process.
type Queue struct {
	h actionHeap
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	q := &Queue{h: make(actionHeap, 0, 8)}
	heap.Init(&q.h)
	return q
}

// Schedule inserts a new entry, O(log n). It does not deduplicate; callers
// must call RemoveAction first if they want at most one entry per kind.
func (q *Queue) Schedule(due time.Time, kind ActionKind) {
	heap.Push(&q.h, action{due: due, kind: kind})
}

// RemoveAction removes every entry whose kind equals kind, O(n).
func (q *Queue) RemoveAction(kind ActionKind) {
	kept := q.h[:0]
	for _, a := range q.h {
		if !a.kind.Equal(kind) {
			kept = append(kept, a)
		}
	}
	q.h = kept
	heap.Init(&q.h)
}

// WakeUpTime returns the duration from now until the earliest due instant,
// saturated at zero. An empty queue returns the longSleep sentinel so the
// scheduler's timer parks rather than firing continuously.
func (q *Queue) WakeUpTime() time.Duration {
	if len(q.h) == 0 {
		return longSleep
	}
	d := time.Until(q.h[0].due)
	if d < 0 {
		return 0
	}
	return d
}

// Pop returns the earliest entry and true iff its due instant has arrived;
// otherwise it returns the zero value and false without blocking.
func (q *Queue) Pop() (ActionKind, bool) {
	if len(q.h) == 0 {
		return ActionKind{}, false
	}
	if q.h[0].due.After(time.Now()) {
		return ActionKind{}, false
	}
	a := heap.Pop(&q.h).(action)
	return a.kind, true
}

// HasAction reports whether any entry matches kind, O(n).
func (q *Queue) HasAction(kind ActionKind) bool {
	for _, a := range q.h {
		if a.kind.Equal(kind) {
			return true
		}
	}
	return false
}
