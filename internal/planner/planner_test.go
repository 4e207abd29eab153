package planner

import (
	"errors"
	"testing"

	"github.com/me/mandelzoom/pkg/fractal"
)

func testGrids(t *testing.T, n, w, h, maxIter int) []*fractal.Grid {
	t.Helper()
	grids := make([]*fractal.Grid, n)
	for i := range grids {
		rect := fractal.CenteredAt(fractal.Point{X: -0.5, Y: 0}, 3/float64(i+1), 2/float64(i+1))
		g, err := fractal.NewGrid(w, h, rect, fractal.WithMaxIterations(maxIter), fractal.WithMaxMagnitude(5))
		if err != nil {
			t.Fatalf("NewGrid: %v", err)
		}
		grids[i] = g
	}
	return grids
}

func mustNew(t *testing.T, g Granularity, grids []*fractal.Grid) *Planner {
	t.Helper()
	p, err := New(g, grids)
	if err != nil {
		t.Fatalf("New(%s): %v", g, err)
	}
	return p
}

func TestJobCount(t *testing.T) {
	grids := testGrids(t, 3, 4, 5, 10)
	tests := []struct {
		g    Granularity
		want int
	}{
		{Pixel, 3 * 4 * 5},
		{Row, 3 * 5},
		{Frame, 3},
		{Monolith, 1},
	}
	for _, tt := range tests {
		if got := mustNew(t, tt.g, grids).JobCount(); got != tt.want {
			t.Errorf("%s JobCount = %d, want %d", tt.g, got, tt.want)
		}
	}
}

func TestJobCount_EmptyWorkload(t *testing.T) {
	for _, g := range []Granularity{Pixel, Row, Frame} {
		if got := mustNew(t, g, nil).JobCount(); got != 0 {
			t.Errorf("%s JobCount on empty workload = %d, want 0", g, got)
		}
	}
	p := mustNew(t, Monolith, nil)
	if p.JobCount() != 1 {
		t.Errorf("monolith JobCount = %d, want 1", p.JobCount())
	}
	p.Job(0).Execute() // nothing to compute, must not panic
}

func TestPixelPlanner_TwoByTwo(t *testing.T) {
	p := mustNew(t, Pixel, testGrids(t, 1, 2, 2, 10))
	if p.JobCount() != 4 {
		t.Fatalf("JobCount = %d, want 4", p.JobCount())
	}

	tests := []struct {
		index   int
		grid, x int
		y       int
	}{
		{0, 0, 0, 0},
		{1, 0, 1, 0},
		{2, 0, 0, 1},
		{3, 0, 1, 1},
	}
	for _, tt := range tests {
		j := p.Job(tt.index)
		if j.Grid != tt.grid || j.X != tt.x || j.Y != tt.y {
			t.Errorf("Job(%d) = %v, want grid=%d x=%d y=%d", tt.index, j, tt.grid, tt.x, tt.y)
		}
		if j.Kind() != Pixel {
			t.Errorf("Job(%d).Kind() = %s, want pixel", tt.index, j.Kind())
		}
	}
}

func TestPixelPlanner_CrossesGrids(t *testing.T) {
	p := mustNew(t, Pixel, testGrids(t, 2, 3, 2, 10))
	j := p.Job(7) // 6 pixels per grid: grid 1, pixel 1
	if j.Grid != 1 || j.X != 1 || j.Y != 0 {
		t.Errorf("Job(7) = %v, want pixel(grid=1,x=1,y=0)", j)
	}
}

func TestRowPlanner_Mapping(t *testing.T) {
	p := mustNew(t, Row, testGrids(t, 2, 3, 4, 10))
	j := p.Job(6)
	if j.Grid != 1 || j.Y != 2 {
		t.Errorf("Job(6) = %v, want row(grid=1,y=2)", j)
	}
	if got := j.String(); got != "row(grid=1,y=2)" {
		t.Errorf("String() = %q", got)
	}
}

func TestFramePlanner_ComputesOnlyItsGrid(t *testing.T) {
	grids := testGrids(t, 3, 4, 3, 10)
	p := mustNew(t, Frame, grids)
	if p.JobCount() != 3 {
		t.Fatalf("JobCount = %d, want 3", p.JobCount())
	}

	p.Job(1).Execute()

	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if grids[0].At(x, y) != 0 || grids[2].At(x, y) != 0 {
				t.Fatalf("job 1 touched grid 0 or 2 at (%d,%d)", x, y)
			}
			// |c| < 5 everywhere in the test rectangles, so every computed
			// pixel iterates at least once.
			if grids[1].At(x, y) == 0 {
				t.Fatalf("job 1 left grid 1 cell (%d,%d) uncomputed", x, y)
			}
		}
	}
}

func TestJob_OutOfRangePanics(t *testing.T) {
	p := mustNew(t, Row, testGrids(t, 1, 2, 2, 10))
	for _, idx := range []int{-1, 2, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Job(%d) did not panic", idx)
				}
			}()
			p.Job(idx)
		}()
	}
}

// Every cell must be covered by exactly one job.
func TestJobs_DisjointAndComplete(t *testing.T) {
	const n, w, h = 2, 5, 3
	for _, g := range []Granularity{Pixel, Row, Frame, Monolith} {
		p := mustNew(t, g, testGrids(t, n, w, h, 10))
		hits := make([]int, n*w*h)
		for i := 0; i < p.JobCount(); i++ {
			for _, c := range cellsOf(p.Job(i), n, w, h) {
				hits[c]++
			}
		}
		for c, count := range hits {
			if count != 1 {
				t.Errorf("%s: cell %d covered %d times, want 1", g, c, count)
			}
		}
	}
}

func cellsOf(j Job, n, w, h int) []int {
	var cells []int
	add := func(grid, x, y int) { cells = append(cells, grid*w*h+y*w+x) }
	switch j.Kind() {
	case Pixel:
		add(j.Grid, j.X, j.Y)
	case Row:
		for x := 0; x < w; x++ {
			add(j.Grid, x, j.Y)
		}
	case Frame:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				add(j.Grid, x, y)
			}
		}
	case Monolith:
		for g := 0; g < n; g++ {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					add(g, x, y)
				}
			}
		}
	}
	return cells
}

func TestGranularities_ProduceIdenticalGrids(t *testing.T) {
	baseline := testGrids(t, 3, 7, 4, 40)
	mono := mustNew(t, Monolith, baseline)
	for i := 0; i < mono.JobCount(); i++ {
		if err := mono.Execute(i); err != nil {
			t.Fatal(err)
		}
	}

	for _, g := range []Granularity{Pixel, Row, Frame} {
		grids := testGrids(t, 3, 7, 4, 40)
		p := mustNew(t, g, grids)
		for i := p.JobCount() - 1; i >= 0; i-- {
			if err := p.Execute(i); err != nil {
				t.Fatal(err)
			}
		}
		for k := range grids {
			if !grids[k].Equal(baseline[k]) {
				t.Errorf("%s: grid %d differs from monolith baseline", g, k)
			}
		}
	}
}

func TestNew_NonUniformWorkload(t *testing.T) {
	a := testGrids(t, 1, 4, 4, 10)
	b := testGrids(t, 1, 4, 5, 10)
	c := testGrids(t, 1, 4, 4, 20)

	if _, err := New(Row, append(a, b...)); !errors.Is(err, ErrNonUniformWorkload) {
		t.Errorf("mixed heights: err = %v, want ErrNonUniformWorkload", err)
	}
	if _, err := New(Row, append(a, c...)); !errors.Is(err, ErrNonUniformWorkload) {
		t.Errorf("mixed iteration bounds: err = %v, want ErrNonUniformWorkload", err)
	}
	if _, err := New(Row, []*fractal.Grid{a[0], nil}); !errors.Is(err, ErrNonUniformWorkload) {
		t.Errorf("nil grid: err = %v, want ErrNonUniformWorkload", err)
	}
	if _, err := New(Granularity(42), a); !errors.Is(err, ErrUnknownGranularity) {
		t.Errorf("bad granularity: err = %v, want ErrUnknownGranularity", err)
	}
}

func TestParseGranularity(t *testing.T) {
	for _, g := range Granularities() {
		got, err := ParseGranularity(g.String())
		if err != nil || got != g {
			t.Errorf("ParseGranularity(%q) = %v, %v", g.String(), got, err)
		}
	}
	if got, err := ParseGranularity("ROW"); err != nil || got != Row {
		t.Errorf("ParseGranularity(ROW) = %v, %v", got, err)
	}
	if _, err := ParseGranularity("tile"); !errors.Is(err, ErrUnknownGranularity) {
		t.Errorf("ParseGranularity(tile) err = %v", err)
	}
}
