package priority_queue

import "container/heap"

// heapQueue implements heap.Interface. Items with equal priority are ordered
// by insertion sequence so the queue pops them first-in first-out.
type heapQueue[T any] struct {
	items []*QueueItem[T]
	less  func(a, b int) bool
}

var _ heap.Interface = &heapQueue[any]{}

func (pq heapQueue[T]) Len() int { return len(pq.items) }

func (pq heapQueue[T]) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Priority == b.Priority {
		return a.seq < b.seq
	}
	return pq.less(a.Priority, b.Priority)
}

func (pq heapQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

func (pq *heapQueue[T]) Push(item any) {
	n := len(pq.items)
	queueItem := item.(*QueueItem[T])
	queueItem.index = n
	pq.items = append(pq.items, queueItem)
}

func (pq *heapQueue[T]) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	pq.items = old[0 : n-1]
	return item
}
