package scheduler

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// chunksPerWorker controls the parallel-for grain: the range is cut into
// about this many chunks per worker so fast workers can pick up slack.
const chunksPerWorker = 4

// poolQueueDepth is the per-worker buffer of the Pool strategy's queue.
const poolQueueDepth = 64

var errStopped = errors.New("run stopped")

// run is the state of one Run call. The cursor and the stop flag are the
// only values shared between workers.
type run struct {
	plan Plan
	n    int

	cursor   atomic.Int64
	executed atomic.Int64
	stopped  atomic.Bool

	failOnce sync.Once
	err      *JobError
}

// execute runs job i and reports whether it succeeded.
func (r *run) execute(i int) bool {
	r.executed.Add(1)
	if err := r.call(i); err != nil {
		r.fail(i, err)
		return false
	}
	return true
}

func (r *run) call(i int) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return r.plan.Execute(i)
}

// fail records the first failure and stops further dispatch.
func (r *run) fail(i int, err error) {
	r.failOnce.Do(func() {
		r.err = &JobError{Index: i, Err: err}
		r.stopped.Store(true)
	})
}

// claim atomically reserves the next index. ok is false once the range is
// exhausted or the run was stopped.
func (r *run) claim() (int, bool) {
	if r.stopped.Load() {
		return 0, false
	}
	i := int(r.cursor.Add(1) - 1)
	if i >= r.n {
		return 0, false
	}
	return i, true
}

func (r *run) sequential() {
	for i := 0; i < r.n; i++ {
		if !r.execute(i) {
			return
		}
	}
}

// threads: persistent workers competing on the shared cursor. The caller
// parks in wg.Wait until every worker has observed an exhausted cursor.
func (r *run) threads(workers int) {
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i, ok := r.claim()
				if !ok {
					return
				}
				r.execute(i)
			}
		}()
	}
	wg.Wait()
}

// pool: one work item per job is queued to a fixed set of workers. Each
// item counts the latch down once, executed or not, and the caller sleeps
// on the latch's condition variable until the count reaches zero.
func (r *run) pool(workers int) {
	done := newLatch(r.n)
	queue := make(chan int, workers*poolQueueDepth)

	for w := 0; w < workers; w++ {
		go func() {
			for i := range queue {
				if !r.stopped.Load() {
					r.execute(i)
				}
				done.countDown(1)
			}
		}()
	}

	submitted := 0
	for submitted < r.n && !r.stopped.Load() {
		queue <- submitted
		submitted++
	}
	close(queue)

	if rest := r.n - submitted; rest > 0 {
		done.countDown(rest)
	}
	done.wait()
}

// parallel: a parallel-for over contiguous chunks of the index range.
func (r *run) parallel(workers int) {
	chunk := r.n / (workers * chunksPerWorker)
	if chunk < 1 {
		chunk = 1
	}
	chunks := (r.n + chunk - 1) / chunk

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for !r.stopped.Load() {
				c := int(next.Add(1) - 1)
				if c >= chunks {
					return
				}
				lo := c * chunk
				hi := min(lo+chunk, r.n)
				for i := lo; i < hi && !r.stopped.Load(); i++ {
					r.execute(i)
				}
			}
		}()
	}
	wg.Wait()
}

// task: one errgroup goroutine per job, at most workers at a time. The
// group's context is cancelled by the first failure, which stops both the
// submission loop and tasks that have not started yet.
func (r *run) task(workers int) {
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)

	for i := 0; i < r.n; i++ {
		if ctx.Err() != nil || r.stopped.Load() {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if !r.execute(i) {
				return errStopped
			}
			return nil
		})
	}
	// The group only ever reports errStopped; the failure itself is in r.err.
	_ = g.Wait()
}
