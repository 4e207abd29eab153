//go:build unix

package scheduler

import (
	"syscall"
	"testing"
	"time"
)

func processCPU(t *testing.T) time.Duration {
	t.Helper()
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		t.Fatalf("getrusage: %v", err)
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}

// While every job is asleep nothing is runnable, so a waiting caller that
// polled would show up as CPU time close to the wall time.
func TestRun_WaitDoesNotSpin(t *testing.T) {
	if testing.Short() {
		t.Skip("measures CPU over half a second per strategy")
	}
	const sleep = 500 * time.Millisecond

	for _, s := range Strategies()[1:] {
		t.Run(s.String(), func(t *testing.T) {
			plan := newCountingPlan(4)
			plan.delay = func(int) time.Duration { return sleep }

			before := processCPU(t)
			start := time.Now()
			if err := newScheduler(t, s, 4).Run(plan); err != nil {
				t.Fatal(err)
			}
			wall := time.Since(start)
			cpu := processCPU(t) - before

			if wall < sleep {
				t.Fatalf("Run took %v, shorter than the job sleep", wall)
			}
			if cpu > sleep/2 {
				t.Errorf("process used %v CPU during a %v run of sleeping jobs", cpu, wall)
			}
		})
	}
}
