// Package export serialises computed grids: WIF animation files for the
// viewers, PNG stills, and the sinks those bytes are written to.
package export

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Palette maps a normalised iteration count t in [0,1] to a colour.
type Palette interface {
	Color(t float64) color.RGBA
}

// Grayscale maps t linearly onto grey levels.
type Grayscale struct{}

func (Grayscale) Color(t float64) color.RGBA {
	c := byte(clamp01(t) * 255)
	return color.RGBA{R: c, G: c, B: c, A: 0xff}
}

// Colorful maps t through three sinusoids of different frequency.
type Colorful struct{}

func (Colorful) Color(t float64) color.RGBA {
	wave := func(freq float64) byte {
		return byte(255 * clamp01(math.Sin(freq*math.Pi*t)*0.5+0.5))
	}
	return color.RGBA{R: wave(2), G: wave(3), B: wave(4), A: 0xff}
}

// ParsePalette resolves a palette name: "grayscale", "colorful", or
// "expr:<javascript>" for an ExprPalette.
func ParsePalette(name string) (Palette, error) {
	switch {
	case strings.EqualFold(name, "grayscale"), strings.EqualFold(name, "gray"), name == "":
		return Grayscale{}, nil
	case strings.EqualFold(name, "colorful"):
		return Colorful{}, nil
	case strings.HasPrefix(name, "expr:"):
		return NewExprPalette(strings.TrimPrefix(name, "expr:"))
	}
	return nil, fmt.Errorf("unknown palette %q", name)
}

// evaluator is a Palette whose colours can fail to evaluate.
type evaluator interface {
	eval(t float64) (color.RGBA, error)
}

// Table precomputes the colour of every iteration count in [0, maxIterations].
// Exporters look colours up here instead of calling the palette per pixel.
// The first colour the palette cannot evaluate is returned as an error.
func Table(p Palette, maxIterations int) ([]color.RGBA, error) {
	table := make([]color.RGBA, maxIterations+1)
	ev, checked := p.(evaluator)
	for n := range table {
		t := float64(n) / float64(maxIterations)
		if !checked {
			table[n] = p.Color(t)
			continue
		}
		c, err := ev.eval(t)
		if err != nil {
			return nil, err
		}
		table[n] = c
	}
	return table, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
