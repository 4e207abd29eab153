package scheduler

import "sync"

// latch is a countdown latch built on a condition variable. Wait parks the
// caller until the count reaches zero.
type latch struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

func newLatch(n int) *latch {
	l := &latch{count: n}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// countDown subtracts n from the count and wakes waiters at zero.
// Going below zero means a job was counted twice, which is a bug.
func (l *latch) countDown(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count -= n
	if l.count < 0 {
		panic("scheduler: latch counted below zero")
	}
	if l.count == 0 {
		l.cond.Broadcast()
	}
}

func (l *latch) wait() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.count > 0 {
		l.cond.Wait()
	}
}
