package scheduler

import "fmt"

// JobError is the first failure observed during a run.
type JobError struct {
	Index int
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %d: %v", e.Index, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// PanicError carries a panic recovered from a job body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
