package model

import "time"

// Run is one recorded render: the workload, how it was scheduled and how
// it ended.
type Run struct {
	ID        string   `json:"id"`
	State     RunState `json:"state"`
	Planner   string   `json:"planner"`
	Scheduler string   `json:"scheduler"`
	Workers   int      `json:"workers"`

	Frames        int `json:"frames"`
	Width         int `json:"width"`
	Height        int `json:"height"`
	MaxIterations int `json:"max_iterations"`

	Jobs     int           `json:"jobs"`
	Executed int           `json:"executed"`
	Duration time.Duration `json:"duration_ns"`

	Output  string `json:"output"`
	Format  string `json:"format"`
	Palette string `json:"palette"`
	Error   string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Pixels returns the number of cells the run computes.
func (r *Run) Pixels() int64 {
	return int64(r.Frames) * int64(r.Width) * int64(r.Height)
}
