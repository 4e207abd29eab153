// Package fractal holds the escape-time kernel and the geometry that maps
// pixel space onto the complex plane.
package fractal

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

const (
	DefaultMaxMagnitude  = 10.0
	DefaultMaxIterations = 255
)

// ErrInvalidGrid is returned when a grid is constructed with non-positive
// dimensions, iteration bound or escape magnitude.
var ErrInvalidGrid = errors.New("invalid grid")

// Grid is one frame: a width×height matrix of escape-time iteration counts
// plus the mapping used to compute them.
//
// Cells are written only by ComputePixel. Distinct cells may be computed
// concurrently; a single cell must not be.
type Grid struct {
	width         int
	height        int
	maxIterations int
	maxMagnitude  float64
	mapper        Mapper
	iterations    []int32
}

// GridOption configures optional Grid parameters.
type GridOption func(*Grid)

// WithMaxIterations sets the iteration bound (default 255).
func WithMaxIterations(n int) GridOption {
	return func(g *Grid) {
		g.maxIterations = n
	}
}

// WithMaxMagnitude sets the escape magnitude (default 10).
func WithMaxMagnitude(m float64) GridOption {
	return func(g *Grid) {
		g.maxMagnitude = m
	}
}

// NewGrid creates a zeroed grid of width×height pixels mapped through m.
func NewGrid(width, height int, m Mapper, opts ...GridOption) (*Grid, error) {
	g := &Grid{
		width:         width,
		height:        height,
		maxIterations: DefaultMaxIterations,
		maxMagnitude:  DefaultMaxMagnitude,
		mapper:        m,
	}
	for _, opt := range opts {
		opt(g)
	}

	switch {
	case width <= 0 || height <= 0:
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidGrid, width, height)
	case g.maxIterations <= 0 || g.maxIterations > math.MaxInt32:
		return nil, fmt.Errorf("%w: max iterations %d", ErrInvalidGrid, g.maxIterations)
	case g.maxMagnitude <= 0:
		return nil, fmt.Errorf("%w: max magnitude %g", ErrInvalidGrid, g.maxMagnitude)
	case m == nil:
		return nil, fmt.Errorf("%w: nil mapper", ErrInvalidGrid)
	}

	g.iterations = make([]int32, width*height)
	return g, nil
}

// Width returns the horizontal resolution.
func (g *Grid) Width() int { return g.width }

// Height returns the vertical resolution.
func (g *Grid) Height() int { return g.height }

// MaxIterations returns the iteration bound.
func (g *Grid) MaxIterations() int { return g.maxIterations }

// MaxMagnitude returns the escape magnitude.
func (g *Grid) MaxMagnitude() float64 { return g.maxMagnitude }

// Mapper returns the pixel-to-plane mapping.
func (g *Grid) Mapper() Mapper { return g.mapper }

// At returns the iteration count stored for pixel (x, y).
func (g *Grid) At(x, y int) int {
	return int(g.iterations[g.offset(x, y)])
}

// ComputePixel runs the escape-time iteration for pixel (x, y) and stores
// the count. It touches no other cell. Out-of-range coordinates panic.
func (g *Grid) ComputePixel(x, y int) {
	off := g.offset(x, y)

	z := g.initialValue(x, y)
	c := z
	n := 0
	for cmplx.Abs(z) < g.maxMagnitude && n < g.maxIterations {
		z = z*z + c
		n++
	}

	g.iterations[off] = int32(n)
}

// ComputeRow computes every pixel of row y.
func (g *Grid) ComputeRow(y int) {
	for x := 0; x < g.width; x++ {
		g.ComputePixel(x, y)
	}
}

// ComputeAll computes every pixel of the grid.
func (g *Grid) ComputeAll() {
	for y := 0; y < g.height; y++ {
		g.ComputeRow(y)
	}
}

// Equal reports whether both grids have the same size and identical counts.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.width != other.width || g.height != other.height {
		return false
	}
	for i, n := range g.iterations {
		if other.iterations[i] != n {
			return false
		}
	}
	return true
}

// Reset zeroes every cell so the grid can be computed again.
func (g *Grid) Reset() {
	clear(g.iterations)
}

func (g *Grid) offset(x, y int) int {
	if uint(x) >= uint(g.width) || uint(y) >= uint(g.height) {
		panic(fmt.Sprintf("fractal: pixel (%d,%d) outside %dx%d grid", x, y, g.width, g.height))
	}
	return y*g.width + x
}

func (g *Grid) initialValue(x, y int) complex128 {
	rel := Point{X: float64(x) / float64(g.width), Y: float64(y) / float64(g.height)}
	q := g.mapper.FromRelative(rel)
	return complex(q.X, q.Y)
}
