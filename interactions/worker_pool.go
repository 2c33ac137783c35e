package interactions

import (
	"fmt"
	"sync"
)

// workerPool runs a fixed number of goroutines over a buffered job queue.
type workerPool struct {
	wg          sync.WaitGroup
	busyWorkers int
	workerCount int
	pool        chan *Entry
	mu          sync.RWMutex
	closed      bool
	handle      func(workerID int, entry *Entry)
	onPanic     func(workerID int, entry *Entry, err error)
}

func newWorkerPool(workersCount int, queueSize int, handle func(int, *Entry), onPanic func(int, *Entry, error)) *workerPool {
	pool := &workerPool{
		workerCount: workersCount,
		pool:        make(chan *Entry, queueSize),
		handle:      handle,
		onPanic:     onPanic,
	}

	pool.start(workersCount)
	return pool
}

// TryDispatch queues entry without blocking. It returns false when the queue
// is full or the pool is stopped.
func (wp *workerPool) TryDispatch(entry *Entry) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}

	select {
	case wp.pool <- entry:
		return true
	default:
		return false
	}
}

// Stop stops accepting jobs and waits for the queued ones to finish.
func (wp *workerPool) Stop() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.pool)
	wp.mu.Unlock()

	wp.wg.Wait()
}

// GetSize returns the number of queued jobs in the worker pool
func (wp *workerPool) GetSize() int {
	return len(wp.pool)
}

// GetWorkerCount returns the total number of workers in the pool
func (wp *workerPool) GetWorkerCount() int {
	return wp.workerCount
}

// GetBusyWorkers returns the number of busy workers
func (wp *workerPool) GetBusyWorkers() int {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.busyWorkers
}

func (wp *workerPool) start(workersCount int) {
	for i := 0; i < workersCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *workerPool) worker(workerID int) {
	defer wp.wg.Done()

	for entry := range wp.pool {
		wp.changeBusyState(true)

		func() {
			defer wp.changeBusyState(false)
			defer func() {
				if r := recover(); r != nil && wp.onPanic != nil {
					wp.onPanic(workerID, entry, fmt.Errorf("panic while recording interaction: %v", r))
				}
			}()

			wp.handle(workerID, entry)
		}()
	}
}

func (wp *workerPool) changeBusyState(busy bool) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if busy {
		wp.busyWorkers++
	} else {
		wp.busyWorkers--
	}
}
