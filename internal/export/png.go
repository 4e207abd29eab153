package export

import (
	"image"
	"image/png"
	"io"

	"github.com/me/mandelzoom/pkg/fractal"
)

// Image renders g into an RGBA image using p.
func Image(g *fractal.Grid, p Palette) (*image.RGBA, error) {
	table, err := Table(p, g.MaxIterations())
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, g.Width(), g.Height()))
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			img.SetRGBA(x, y, table[g.At(x, y)])
		}
	}
	return img, nil
}

// EncodePNG writes g as a PNG still.
func EncodePNG(w io.Writer, g *fractal.Grid, p Palette) error {
	img, err := Image(g, p)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}
