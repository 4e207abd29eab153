package export

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/me/mandelzoom/pkg/fractal"
)

// Format selects the WIF flavour written by Write.
type Format int

const (
	// Binary is a stream of frames, each an int32 LE width, an int32 LE
	// height and width*height RGB triples in row-major order, terminated
	// by a zero int32.
	Binary Format = iota
	// Text wraps each frame's binary encoding in base64 between "<<<" and
	// ">>>" lines. It has no terminator.
	Text
)

var formatNames = map[Format]string{
	Binary: "binary",
	Text:   "text",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown WIF format %q (want binary or text)", s)
}

// Write encodes grids to w in format f, colouring with p.
func Write(w io.Writer, f Format, grids []*fractal.Grid, p Palette) error {
	switch f {
	case Binary:
		return WriteBinaryWIF(w, grids, p)
	case Text:
		return WriteTextWIF(w, grids, p)
	}
	return fmt.Errorf("unknown WIF format %v", f)
}

// WriteBinaryWIF writes grids as a binary WIF stream.
func WriteBinaryWIF(w io.Writer, grids []*fractal.Grid, p Palette) error {
	bw := bufio.NewWriter(w)
	for i, g := range grids {
		if err := writeFrame(bw, g, p); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(0)); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteTextWIF writes grids as base64 text blocks.
func WriteTextWIF(w io.Writer, grids []*fractal.Grid, p Palette) error {
	bw := bufio.NewWriter(w)
	for i, g := range grids {
		if _, err := bw.WriteString("<<<\n"); err != nil {
			return err
		}
		enc := base64.NewEncoder(base64.StdEncoding, bw)
		if err := writeFrame(enc, g, p); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := enc.Close(); err != nil {
			return err
		}
		if _, err := bw.WriteString("\n>>>\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeFrame(w io.Writer, g *fractal.Grid, p Palette) error {
	table, err := Table(p, g.MaxIterations())
	if err != nil {
		return err
	}
	header := [2]int32{int32(g.Width()), int32(g.Height())}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	row := make([]byte, 3*g.Width())
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			c := table[g.At(x, y)]
			row[3*x], row[3*x+1], row[3*x+2] = c.R, c.G, c.B
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// ReadBinaryWIF decodes a binary WIF stream into images. It is the inverse
// of WriteBinaryWIF up to the palette.
func ReadBinaryWIF(r io.Reader) ([]*image.RGBA, error) {
	br := bufio.NewReader(r)
	var frames []*image.RGBA
	for {
		var width int32
		if err := binary.Read(br, binary.LittleEndian, &width); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("frame %d: missing terminator: %w", len(frames), io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		if width == 0 {
			return frames, nil
		}
		var height int32
		if err := binary.Read(br, binary.LittleEndian, &height); err != nil {
			return nil, fmt.Errorf("frame %d: %w", len(frames), err)
		}
		if width < 0 || height <= 0 {
			return nil, fmt.Errorf("frame %d: invalid size %dx%d", len(frames), width, height)
		}
		img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
		row := make([]byte, 3*width)
		for y := 0; y < int(height); y++ {
			if _, err := io.ReadFull(br, row); err != nil {
				return nil, fmt.Errorf("frame %d row %d: %w", len(frames), y, err)
			}
			for x := 0; x < int(width); x++ {
				img.SetRGBA(x, y, color.RGBA{R: row[3*x], G: row[3*x+1], B: row[3*x+2], A: 0xff})
			}
		}
		frames = append(frames, img)
	}
}
