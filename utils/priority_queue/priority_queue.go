package priority_queue

import (
	"container/heap"
	"sync"
)

// QueueItem wraps a value stored in the queue.
type QueueItem[T any] struct {
	Item     T
	Priority int
	index    int
	seq      uint64
}

// PriorityQueue is a thread-safe, stable priority queue. Items sharing a
// priority come out in the order they were pushed.
type PriorityQueue[T any] struct {
	queue *heapQueue[T]
	next  uint64
	mutex sync.Mutex
}

func newQueue[T any](less func(a, b int) bool) *PriorityQueue[T] {
	pq := &PriorityQueue[T]{
		queue: &heapQueue[T]{
			items: make([]*QueueItem[T], 0),
			less:  less,
		},
	}
	heap.Init(pq.queue)
	return pq
}

// NewMaxPriorityQueue creates a queue where higher priority values come first.
func NewMaxPriorityQueue[T any]() *PriorityQueue[T] {
	return newQueue[T](func(a, b int) bool { return a > b })
}

// NewMinPriorityQueue creates a queue where lower priority values come first.
func NewMinPriorityQueue[T any]() *PriorityQueue[T] {
	return newQueue[T](func(a, b int) bool { return a < b })
}

// Push adds a value and returns the new size.
func (pq *PriorityQueue[T]) Push(item T, priority int) int {
	pq.mutex.Lock()
	defer pq.mutex.Unlock()

	heap.Push(pq.queue, &QueueItem[T]{Item: item, Priority: priority, seq: pq.next})
	pq.next++
	return len(pq.queue.items)
}

// Pop removes the first value in priority order. ok is false when empty.
func (pq *PriorityQueue[T]) Pop() (item T, ok bool) {
	pq.mutex.Lock()
	defer pq.mutex.Unlock()

	if len(pq.queue.items) == 0 {
		return item, false
	}
	queueItem := heap.Pop(pq.queue).(*QueueItem[T])
	return queueItem.Item, true
}

// Size returns the number of queued values.
func (pq *PriorityQueue[T]) Size() int {
	pq.mutex.Lock()
	defer pq.mutex.Unlock()
	return len(pq.queue.items)
}

// Drain pops every value and returns them in priority order.
func (pq *PriorityQueue[T]) Drain() []T {
	pq.mutex.Lock()
	defer pq.mutex.Unlock()

	out := make([]T, 0, len(pq.queue.items))
	for len(pq.queue.items) > 0 {
		out = append(out, heap.Pop(pq.queue).(*QueueItem[T]).Item)
	}
	return out
}
