package batch

import "sync"

// indexQueue is the FIFO of selected item indices shared by all workers
type indexQueue struct {
	mu      sync.Mutex
	indices []int
	head    int
}

func newIndexQueue(indices []int) *indexQueue {
	return &indexQueue{indices: append([]int(nil), indices...)}
}

// Pop removes and returns the next index; ok is false once drained
func (q *indexQueue) Pop() (index int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.indices) {
		return 0, false
	}
	index = q.indices[q.head]
	q.head++
	return index, true
}

// Len returns the number of indices not yet popped
func (q *indexQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.indices) - q.head
}
