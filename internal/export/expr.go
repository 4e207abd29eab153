package export

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/dop251/goja"
)

// ExprPalette evaluates a JavaScript expression of t per colour. The
// expression yields either a number (grey level, 0-255) or an array
// [r, g, b]. Math is available, e.g. "[255*t, 128, 255*(1-t)]".
//
// A goja runtime is not safe for concurrent use, so evaluation is
// serialised. Exporters call it only through Table, once per count.
type ExprPalette struct {
	source string

	mu sync.Mutex
	vm *goja.Runtime
	fn goja.Callable
}

// NewExprPalette compiles expr. Syntax errors are reported here rather
// than at export time.
func NewExprPalette(expr string) (*ExprPalette, error) {
	program, err := goja.Compile("palette", "(function(t) { return ("+expr+"); })", false)
	if err != nil {
		return nil, fmt.Errorf("palette expression: %w", err)
	}
	vm := goja.New()
	fnVal, err := vm.RunProgram(program)
	if err != nil {
		return nil, fmt.Errorf("palette expression: %w", err)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("palette expression: not callable")
	}
	p := &ExprPalette{source: expr, vm: vm, fn: fn}

	// Surface runtime errors (unknown identifiers, bad return type) early.
	if _, err := p.eval(0); err != nil {
		return nil, err
	}
	return p, nil
}

// Source returns the expression text.
func (p *ExprPalette) Source() string { return p.source }

// Color evaluates the expression. Runtime errors map to black here; Table
// reports them instead.
func (p *ExprPalette) Color(t float64) color.RGBA {
	c, err := p.eval(t)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	return c
}

func (p *ExprPalette) eval(t float64) (color.RGBA, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.fn(goja.Undefined(), p.vm.ToValue(t))
	if err != nil {
		return color.RGBA{}, fmt.Errorf("palette expression at t=%g: %w", t, err)
	}

	switch v := res.Export().(type) {
	case int64:
		g := channel(float64(v))
		return color.RGBA{R: g, G: g, B: g, A: 0xff}, nil
	case float64:
		g := channel(v)
		return color.RGBA{R: g, G: g, B: g, A: 0xff}, nil
	case []any:
		if len(v) != 3 {
			return color.RGBA{}, fmt.Errorf("palette expression: got %d channels, want 3", len(v))
		}
		var rgb [3]byte
		for i, ch := range v {
			f, ok := toFloat(ch)
			if !ok {
				return color.RGBA{}, fmt.Errorf("palette expression: channel %d is %T", i, ch)
			}
			rgb[i] = channel(f)
		}
		return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff}, nil
	default:
		return color.RGBA{}, fmt.Errorf("palette expression: unsupported result %T", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func channel(v float64) byte {
	return byte(clamp01(v/255) * 255)
}
