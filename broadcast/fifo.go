package broadcast

import (
	"container/list"
	"context"
	"sync"
)

// fifoLock is a mutex that grants ownership in arrival order. A waiter whose
// context ends is removed from the queue.
type fifoLock struct {
	mu      sync.Mutex
	held    bool
	waiters list.List // of chan struct{}
}

func (l *fifoLock) Lock(ctx context.Context) error {
	l.mu.Lock()
	if !l.held && l.waiters.Len() == 0 {
		l.held = true
		l.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	elem := l.waiters.PushBack(ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		select {
		case <-ready:
			// Ownership was handed over while we were giving up; pass it on.
			l.mu.Unlock()
			l.Unlock()
		default:
			l.waiters.Remove(elem)
			l.mu.Unlock()
		}
		return ctx.Err()
	}
}

// Unlock hands ownership to the oldest waiter, or releases the lock.
func (l *fifoLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if front := l.waiters.Front(); front != nil {
		l.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	l.held = false
}

// Waiting returns the number of queued waiters.
func (l *fifoLock) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiters.Len()
}
