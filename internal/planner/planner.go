// Package planner splits a rendering workload into independently executable
// jobs at a chosen granularity.
package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/me/mandelzoom/pkg/fractal"
)

// Granularity selects how much of the workload one job covers.
type Granularity int

const (
	// Pixel: one job per pixel per frame.
	Pixel Granularity = iota
	// Row: one job per row per frame.
	Row
	// Frame: one job per frame.
	Frame
	// Monolith: a single job computing the whole workload in order.
	Monolith
)

var (
	ErrUnknownGranularity = errors.New("unknown granularity")
	ErrNonUniformWorkload = errors.New("non-uniform workload")
)

var granularityNames = map[Granularity]string{
	Pixel:    "pixel",
	Row:      "row",
	Frame:    "frame",
	Monolith: "monolith",
}

// String returns the lower-case name of the granularity.
func (g Granularity) String() string {
	if name, ok := granularityNames[g]; ok {
		return name
	}
	return fmt.Sprintf("granularity(%d)", int(g))
}

// Granularities lists every granularity, finest first.
func Granularities() []Granularity {
	return []Granularity{Pixel, Row, Frame, Monolith}
}

// ParseGranularity converts a name such as "row" to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	for g, name := range granularityNames {
		if strings.EqualFold(s, name) {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

func (g Granularity) MarshalText() ([]byte, error) {
	if _, ok := granularityNames[g]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGranularity, int(g))
	}
	return []byte(g.String()), nil
}

func (g *Granularity) UnmarshalText(text []byte) error {
	parsed, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Planner maps job indices in [0, JobCount()) onto disjoint parts of a
// workload. It holds no mutable state and is safe for concurrent use.
type Planner struct {
	granularity Granularity
	grids       []*fractal.Grid
	width       int
	height      int
}

// New creates a planner over grids. All grids must share width, height and
// iteration bound. An empty workload is valid and yields no cell work.
func New(g Granularity, grids []*fractal.Grid) (*Planner, error) {
	if _, ok := granularityNames[g]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGranularity, int(g))
	}

	p := &Planner{granularity: g, grids: grids}
	if len(grids) == 0 {
		return p, nil
	}

	first := grids[0]
	if first == nil {
		return nil, fmt.Errorf("%w: grid 0 is nil", ErrNonUniformWorkload)
	}
	for i, gr := range grids[1:] {
		if gr == nil {
			return nil, fmt.Errorf("%w: grid %d is nil", ErrNonUniformWorkload, i+1)
		}
		if gr.Width() != first.Width() || gr.Height() != first.Height() || gr.MaxIterations() != first.MaxIterations() {
			return nil, fmt.Errorf("%w: grid %d is %dx%d/%d, grid 0 is %dx%d/%d",
				ErrNonUniformWorkload, i+1,
				gr.Width(), gr.Height(), gr.MaxIterations(),
				first.Width(), first.Height(), first.MaxIterations())
		}
	}
	p.width = first.Width()
	p.height = first.Height()
	return p, nil
}

// Granularity returns the planner's granularity.
func (p *Planner) Granularity() Granularity { return p.granularity }

// Workload returns the grids the planner covers.
func (p *Planner) Workload() []*fractal.Grid { return p.grids }

// JobCount returns the number of jobs for the workload.
func (p *Planner) JobCount() int {
	n := len(p.grids)
	switch p.granularity {
	case Pixel:
		return n * p.width * p.height
	case Row:
		return n * p.height
	case Frame:
		return n
	default:
		return 1
	}
}

// Job returns the descriptor of job index. Constructing a job has no side
// effects; the cells are written only when the job is executed. An index
// outside [0, JobCount()) is a caller bug and panics.
func (p *Planner) Job(index int) Job {
	if index < 0 || index >= p.JobCount() {
		panic(fmt.Sprintf("planner: job %d out of range [0,%d)", index, p.JobCount()))
	}

	switch p.granularity {
	case Pixel:
		pixels := p.width * p.height
		pixel := index % pixels
		return Job{
			kind:  Pixel,
			grids: p.grids,
			Grid:  index / pixels,
			X:     pixel % p.width,
			Y:     pixel / p.width,
		}
	case Row:
		return Job{kind: Row, grids: p.grids, Grid: index / p.height, Y: index % p.height}
	case Frame:
		return Job{kind: Frame, grids: p.grids, Grid: index}
	default:
		return Job{kind: Monolith, grids: p.grids}
	}
}

// Execute runs job index. It lets a Planner be handed straight to a
// scheduler.
func (p *Planner) Execute(index int) error {
	p.Job(index).Execute()
	return nil
}
