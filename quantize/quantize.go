/*
Package quantize maps an image of arbitrary colors onto the indices of a fixed
palette, one index per pixel.

Both the image and the palette are consumed through small capability
interfaces so any decoder or color table can be plugged in. Without dithering
every pixel is replaced by the index the palette reports as nearest, which
makes the result a pure function of its inputs. Floyd-Steinberg error
diffusion is available as an option.
*/
package quantize

import (
	"errors"
	"fmt"

	"github.com/bodgit/img2xlsx/palette"
)

var (
	// ErrEmptyImage is returned for an image with no pixels.
	ErrEmptyImage = errors.New("quantize: image has no pixels")
	// ErrEmptyPalette is returned for a palette with no colors.
	ErrEmptyPalette = errors.New("quantize: palette has no colors")
	// ErrDitherPalette is returned when dithering against a palette too
	// large for an image.Paletted.
	ErrDitherPalette = errors.New("quantize: dithering needs a palette of at most 256 colors")
)

// Image is a read-only grid of pixels with its origin at (0, 0).
type Image interface {
	Width() int
	Height() int
	PixelAt(x, y int) palette.RGB
}

// Palette is an ordered color table that can find its nearest entry to any
// color.
type Palette interface {
	Len() int
	ColorAt(i int) palette.RGB
	NearestIndex(c palette.RGB) int
}

// IndexOutOfRangeError is an internal invariant violation: a pixel refers
// to an index that does not exist in the palette.
type IndexOutOfRangeError struct {
	X, Y  int
	Index int
	Size  int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("quantize: pixel (%d, %d) has palette index %d outside [0, %d)", e.X, e.Y, e.Index, e.Size)
}

// Indexed is a grid of palette indices stored row by row.
type Indexed struct {
	Width  int
	Height int
	Pix    []int
}

// NewIndexed returns a zeroed grid of the given size.
func NewIndexed(width, height int) *Indexed {
	return &Indexed{
		Width:  width,
		Height: height,
		Pix:    make([]int, width*height),
	}
}

// At returns the palette index of the pixel at (x, y).
func (q *Indexed) At(x, y int) int {
	return q.Pix[y*q.Width+x]
}

// Set stores the palette index of the pixel at (x, y).
func (q *Indexed) Set(x, y, i int) {
	q.Pix[y*q.Width+x] = i
}

// Validate checks every index lies within a palette of the given size.
func (q *Indexed) Validate(size int) error {
	if len(q.Pix) != q.Width*q.Height {
		return fmt.Errorf("quantize: %d indices for a %dx%d grid", len(q.Pix), q.Width, q.Height)
	}
	for i, v := range q.Pix {
		if v < 0 || v >= size {
			return &IndexOutOfRangeError{
				X:     i % q.Width,
				Y:     i / q.Width,
				Index: v,
				Size:  size,
			}
		}
	}
	return nil
}

// Options control quantization.
type Options struct {
	// Dither enables Floyd-Steinberg error diffusion.
	Dither bool
}

// Quantize returns the palette index for every pixel of m.
func Quantize(m Image, p Palette, opts Options) (*Indexed, error) {
	w, h := m.Width(), m.Height()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyImage
	}
	if p.Len() == 0 {
		return nil, ErrEmptyPalette
	}

	var q *Indexed
	if opts.Dither {
		if p.Len() > 256 {
			return nil, ErrDitherPalette
		}
		q = dither(m, p)
	} else {
		q = NewIndexed(w, h)

		// Frames tend to reuse a small number of colors
		cache := make(map[palette.RGB]int)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := m.PixelAt(x, y)
				i, ok := cache[c]
				if !ok {
					i = p.NearestIndex(c)
					cache[c] = i
				}
				q.Set(x, y, i)
			}
		}
	}

	if err := q.Validate(p.Len()); err != nil {
		return nil, err
	}

	return q, nil
}
