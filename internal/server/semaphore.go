package server

import "context"

// Semaphore bounds the number of frames rendered concurrently.
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity.
// If n <= 0, returns nil (unlimited concurrency).
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		return nil
	}
	return &Semaphore{ch: make(chan struct{}, n)}
}

// Acquire blocks until a slot is available or ctx is cancelled.
// Returns true if acquired. A nil semaphore always acquires.
func (s *Semaphore) Acquire(ctx context.Context) bool {
	if s == nil {
		return true
	}
	select {
	case s.ch <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Release releases a slot. No-op on a nil semaphore.
func (s *Semaphore) Release() {
	if s == nil {
		return
	}
	<-s.ch
}

// Capacity returns the semaphore capacity, or 0 if nil (unlimited).
func (s *Semaphore) Capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.ch)
}

// InUse returns the number of held slots.
func (s *Semaphore) InUse() int {
	if s == nil {
		return 0
	}
	return len(s.ch)
}
