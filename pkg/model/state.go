package model

// RunState represents the lifecycle state of a render Run.
type RunState string

const (
	RunStatePending   RunState = "PENDING"
	RunStateRunning   RunState = "RUNNING"
	RunStateCompleted RunState = "COMPLETED"
	RunStateFailed    RunState = "FAILED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed:
		return true
	}
	return false
}

// ValidRunTransitions defines the allowed state transitions for Runs.
// A run that fails before its scheduler starts goes straight from PENDING
// to FAILED.
var ValidRunTransitions = map[RunState][]RunState{
	RunStatePending: {RunStateRunning, RunStateFailed},
	RunStateRunning: {RunStateCompleted, RunStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, allowed := range ValidRunTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseRunState returns the state named by s and whether it is known.
func ParseRunState(s string) (RunState, bool) {
	switch st := RunState(s); st {
	case RunStatePending, RunStateRunning, RunStateCompleted, RunStateFailed:
		return st, true
	}
	return "", false
}
