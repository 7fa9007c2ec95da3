package sched

import (
	"container/heap"
)

// lrnEntry is one learning-heap element. seq is a monotonically
// increasing insertion counter so equal dues pop in insertion order.
type lrnEntry struct {
	due int64 // unix seconds
	seq int64
	id  int64
}

type lrnHeap []lrnEntry

func (h lrnHeap) Len() int { return len(h) }

func (h lrnHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h lrnHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *lrnHeap) Push(x any) {
	*h = append(*h, x.(lrnEntry))
}

func (h *lrnHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// lrnQueue wraps the heap with the insertion counter.
type lrnQueue struct {
	h   lrnHeap
	seq int64
}

func (q *lrnQueue) len() int { return len(q.h) }

func (q *lrnQueue) clear() {
	q.h = q.h[:0]
}

func (q *lrnQueue) push(due, id int64) {
	q.seq++
	heap.Push(&q.h, lrnEntry{due: due, seq: q.seq, id: id})
}

// peekDue returns the smallest due in the heap; callers must check
// len() first.
func (q *lrnQueue) peekDue() int64 {
	return q.h[0].due
}

func (q *lrnQueue) pop() lrnEntry {
	return heap.Pop(&q.h).(lrnEntry)
}

// remove drops a card id from the heap if present.
func (q *lrnQueue) remove(id int64) {
	for i, e := range q.h {
		if e.id == id {
			heap.Remove(&q.h, i)
			return
		}
	}
}
