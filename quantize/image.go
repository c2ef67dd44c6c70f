package quantize

import (
	"image"

	"github.com/bodgit/img2xlsx/palette"
)

type stdImage struct {
	m image.Image
	b image.Rectangle
}

// FromImage adapts an image.Image. The bounds are rebased so the top-left
// pixel is at (0, 0) and any alpha is discarded.
func FromImage(m image.Image) Image {
	return &stdImage{
		m: m,
		b: m.Bounds(),
	}
}

func (s *stdImage) Width() int {
	return s.b.Dx()
}

func (s *stdImage) Height() int {
	return s.b.Dy()
}

func (s *stdImage) PixelAt(x, y int) palette.RGB {
	return palette.FromColor(s.m.At(s.b.Min.X+x, s.b.Min.Y+y))
}

// Image returns the wrapped image.
func (s *stdImage) Image() image.Image {
	return s.m
}
