package render

import (
	"fmt"

	"github.com/me/mandelzoom/internal/planner"
	"github.com/me/mandelzoom/internal/scheduler"
	"github.com/me/mandelzoom/pkg/fractal"
)

// Frame computes frame index of the zoom described by o, row by row on
// sched. Width and height override the resolution when positive; the
// plane width of the frame does not depend on resolution.
func Frame(o fractal.FrameOptions, index, width, height int, sched *scheduler.Scheduler) (*fractal.Grid, error) {
	if width > 0 {
		o.Width = width
	}
	if height > 0 {
		o.Height = height
	}
	g, err := fractal.Frame(o, index)
	if err != nil {
		return nil, err
	}
	plan, err := planner.New(planner.Row, []*fractal.Grid{g})
	if err != nil {
		return nil, err
	}
	if err := sched.Run(plan); err != nil {
		return nil, fmt.Errorf("frame %d: %w", index, err)
	}
	return g, nil
}
