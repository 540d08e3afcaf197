// Package queue implements the kernel's priority queue: a min-heap of
// scheduled entries keyed on (At, Sequence), giving deterministic FIFO
// tie-breaking for entries that share a delivery time.
package queue

import "container/heap"

// Entry is one element of the queue. Sequence must be assigned by the
// caller from a monotonically increasing counter at push time; it is the
// tie-break that makes delivery order deterministic when two entries
// share the same At.
type Entry[T any] struct {
	At       uint64
	Sequence uint64
	Value    T
}

// Queue is a min-heap of Entry values ordered by (At asc, Sequence asc).
type Queue[T any] struct {
	h minHeap[T]
}

// New returns an empty Queue ready for use.
func New[T any]() *Queue[T] {
	return &Queue[T]{h: minHeap[T]{}}
}

// Push inserts an entry. O(log n).
func (q *Queue[T]) Push(e Entry[T]) {
	heap.Push(&q.h, e)
}

// PopMin removes and returns the entry with the smallest (At, Sequence),
// or false if the queue is empty.
func (q *Queue[T]) PopMin() (Entry[T], bool) {
	if q.h.Len() == 0 {
		var zero Entry[T]
		return zero, false
	}
	return heap.Pop(&q.h).(Entry[T]), true
}

// PeekMin returns the entry with the smallest (At, Sequence) without
// removing it, or false if the queue is empty.
func (q *Queue[T]) PeekMin() (Entry[T], bool) {
	if q.h.Len() == 0 {
		var zero Entry[T]
		return zero, false
	}
	return q.h[0], true
}

// Len returns the number of entries currently queued.
func (q *Queue[T]) Len() int {
	return q.h.Len()
}

// minHeap implements container/heap.Interface over Entry[T], ordered so
// that the smallest (At, Sequence) pair sorts first.
type minHeap[T any] []Entry[T]

func (h minHeap[T]) Len() int { return len(h) }

func (h minHeap[T]) Less(i, j int) bool {
	if h[i].At != h[j].At {
		return h[i].At < h[j].At
	}
	return h[i].Sequence < h[j].Sequence
}

func (h minHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *minHeap[T]) Push(x any) {
	*h = append(*h, x.(Entry[T]))
}

func (h *minHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
