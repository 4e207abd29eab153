package planner

import (
	"fmt"

	"github.com/me/mandelzoom/pkg/fractal"
)

// Job is a small value naming the cells one job computes. Which of Grid, X
// and Y are meaningful depends on the granularity that produced it:
//
//	Pixel     Grid, X, Y
//	Row       Grid, Y
//	Frame     Grid
//	Monolith  none (every grid)
type Job struct {
	kind  Granularity
	grids []*fractal.Grid

	Grid int
	X    int
	Y    int
}

// Kind returns the granularity the job was planned at.
func (j Job) Kind() Granularity { return j.kind }

// Execute computes the job's cells.
func (j Job) Execute() {
	switch j.kind {
	case Pixel:
		j.grids[j.Grid].ComputePixel(j.X, j.Y)
	case Row:
		j.grids[j.Grid].ComputeRow(j.Y)
	case Frame:
		j.grids[j.Grid].ComputeAll()
	case Monolith:
		for _, g := range j.grids {
			g.ComputeAll()
		}
	}
}

// String describes the job, e.g. "row(grid=2,y=17)".
func (j Job) String() string {
	switch j.kind {
	case Pixel:
		return fmt.Sprintf("pixel(grid=%d,x=%d,y=%d)", j.Grid, j.X, j.Y)
	case Row:
		return fmt.Sprintf("row(grid=%d,y=%d)", j.Grid, j.Y)
	case Frame:
		return fmt.Sprintf("frame(grid=%d)", j.Grid)
	default:
		return "monolith"
	}
}
