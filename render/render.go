// Package render turns a grid of palette indices into a grid of hexadecimal
// color strings, one per cell.
package render

import (
	"github.com/bodgit/img2xlsx/palette"
	"github.com/bodgit/img2xlsx/quantize"
)

// Palette is the part of a color table needed to render a frame.
type Palette interface {
	Len() int
	ColorAt(i int) palette.RGB
}

// Frame is a grid of six digit uppercase hex colors stored row by row.
type Frame struct {
	Width  int
	Height int
	Cells  []string
}

// At returns the color of the cell at row, col.
func (f *Frame) At(row, col int) string {
	return f.Cells[row*f.Width+col]
}

// Render returns the hex color of every pixel of q. Indices outside p
// produce a *quantize.IndexOutOfRangeError.
func Render(q *quantize.Indexed, p Palette) (*Frame, error) {
	if err := q.Validate(p.Len()); err != nil {
		return nil, err
	}

	// Cells share the strings of the palette entries they use
	hex := make([]string, p.Len())
	for i := range hex {
		hex[i] = p.ColorAt(i).Hex()
	}

	f := &Frame{
		Width:  q.Width,
		Height: q.Height,
		Cells:  make([]string, len(q.Pix)),
	}
	for i, v := range q.Pix {
		f.Cells[i] = hex[v]
	}

	return f, nil
}
