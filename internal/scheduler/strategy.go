package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy selects the concurrency primitive used to run a plan.
type Strategy int

const (
	// Sequential runs every job in index order on the calling goroutine.
	Sequential Strategy = iota
	// Threads starts one long-lived worker per processor; workers claim
	// indices from a shared atomic cursor.
	Threads
	// Pool queues one work item per job onto a managed worker pool and
	// waits on a countdown latch.
	Pool
	// Parallel is a parallel-for: the index range is cut into chunks that
	// workers claim until the range is exhausted.
	Parallel
	// Task starts one errgroup goroutine per job and waits on the group.
	Task
)

var ErrUnknownStrategy = errors.New("unknown strategy")

var strategyNames = map[Strategy]string{
	Sequential: "sequential",
	Threads:    "threads",
	Pool:       "pool",
	Parallel:   "parallel",
	Task:       "task",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Strategies lists every strategy, sequential first.
func Strategies() []Strategy {
	return []Strategy{Sequential, Threads, Pool, Parallel, Task}
}

// ParseStrategy converts a name such as "pool" to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	for st, name := range strategyNames {
		if strings.EqualFold(s, name) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

func (s Strategy) MarshalText() ([]byte, error) {
	if _, ok := strategyNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
