package pipeline

import (
	"context"
	"sync"
)

// Queue is the FIFO of segment paths between the producers (capture loop and
// startup reconciler) and the upload worker. With capacity 0 it is unbounded
// and Put never blocks; otherwise Put waits for room.
type Queue struct {
	mu       sync.Mutex
	items    []string
	capacity int

	// ready and space carry at most one pending wake-up each. A woken waiter
	// passes the signal on when more work or room remains.
	ready chan struct{}
	space chan struct{}
}

// NewQueue returns an empty queue. capacity <= 0 means unbounded.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
	}
}

// Put appends path, waiting while a bounded queue is full.
func (q *Queue) Put(ctx context.Context, path string) error {
	for {
		q.mu.Lock()
		if q.capacity == 0 || len(q.items) < q.capacity {
			q.items = append(q.items, path)
			room := q.capacity == 0 || len(q.items) < q.capacity
			q.mu.Unlock()
			notify(q.ready)
			if room {
				notify(q.space)
			}
			return nil
		}
		q.mu.Unlock()

		select {
		case <-q.space:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Get removes and returns the oldest path, waiting while the queue is empty.
func (q *Queue) Get(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			path := q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			notify(q.space)
			if more {
				notify(q.ready)
			}
			return path, nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Len returns the number of queued paths.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
