package fractal

import (
	"errors"
	"fmt"
)

// FrameOptions describes a zoom animation: a sequence of frames centred on
// the same point whose plane width shrinks geometrically.
type FrameOptions struct {
	Width         int
	Height        int
	Center        Point
	StartWidth    float64
	EndWidth      float64
	ZoomFactor    float64
	MaxMagnitude  float64
	MaxIterations int

	// MaxFrames truncates the zoom after this many frames. 0 means no limit.
	MaxFrames int
}

// Validate checks that the zoom terminates and the frames are well-formed.
func (o FrameOptions) Validate() error {
	var errs []error
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("resolution %dx%d must be positive", o.Width, o.Height))
	}
	if o.ZoomFactor <= 0 || o.ZoomFactor >= 1 {
		errs = append(errs, fmt.Errorf("zoom factor %g must be in (0,1)", o.ZoomFactor))
	}
	if o.EndWidth <= 0 {
		errs = append(errs, fmt.Errorf("end width %g must be positive", o.EndWidth))
	}
	if o.StartWidth <= o.EndWidth {
		errs = append(errs, fmt.Errorf("start width %g must exceed end width %g", o.StartWidth, o.EndWidth))
	}
	if o.MaxMagnitude <= 0 {
		errs = append(errs, fmt.Errorf("max magnitude %g must be positive", o.MaxMagnitude))
	}
	if o.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("max frames %d must not be negative", o.MaxFrames))
	}
	if o.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("max iterations %d must be positive", o.MaxIterations))
	}
	return errors.Join(errs...)
}

// FrameCount returns the number of frames Frames would produce.
func (o FrameOptions) FrameCount() int {
	if o.Validate() != nil {
		return 0
	}
	n := 0
	for w := o.StartWidth; w > o.EndWidth && !o.truncated(n); w *= o.ZoomFactor {
		n++
	}
	return n
}

// Frames builds the zeroed grids of the whole zoom, widest first.
func Frames(o FrameOptions) ([]*Grid, error) {
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("frame options: %w", err)
	}

	var grids []*Grid
	for w := o.StartWidth; w > o.EndWidth && !o.truncated(len(grids)); w *= o.ZoomFactor {
		g, err := o.newGrid(w)
		if err != nil {
			return nil, err
		}
		grids = append(grids, g)
	}
	return grids, nil
}

// Frame builds the zeroed grid for frame index alone. The plane width is
// derived by repeated multiplication so it matches Frames exactly.
func Frame(o FrameOptions, index int) (*Grid, error) {
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("frame options: %w", err)
	}
	if index < 0 || o.truncated(index) {
		return nil, fmt.Errorf("frame %d out of range", index)
	}

	w := o.StartWidth
	for i := 0; i < index; i++ {
		w *= o.ZoomFactor
		if w <= o.EndWidth {
			return nil, fmt.Errorf("frame %d out of range", index)
		}
	}
	return o.newGrid(w)
}

// truncated reports whether frame n lies beyond MaxFrames.
func (o FrameOptions) truncated(n int) bool {
	return o.MaxFrames > 0 && n >= o.MaxFrames
}

func (o FrameOptions) newGrid(planeWidth float64) (*Grid, error) {
	ratio := float64(o.Width) / float64(o.Height)
	rect := CenteredAtByRatio(o.Center, ratio, planeWidth)
	return NewGrid(o.Width, o.Height, rect,
		WithMaxMagnitude(o.MaxMagnitude),
		WithMaxIterations(o.MaxIterations),
	)
}
