package quantize

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Returns m as an opaque image.Image along with the point that maps to (0, 0)
func asImage(m Image) (image.Image, image.Point) {
	if s, ok := m.(interface{ Image() image.Image }); ok {
		img := s.Image()
		if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
			return img, img.Bounds().Min
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, m.Width(), m.Height()))
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			c := m.PixelAt(x, y)
			img.SetNRGBA(x, y, color.NRGBA{c.R, c.G, c.B, 0xff})
		}
	}
	return img, image.Point{}
}

func dither(m Image, p Palette) *Indexed {
	var cp color.Palette
	if c, ok := p.(interface{ ColorPalette() color.Palette }); ok {
		cp = c.ColorPalette()
	} else {
		cp = make(color.Palette, p.Len())
		for i := range cp {
			cp[i] = p.ColorAt(i)
		}
	}

	src, sp := asImage(m)
	r := image.Rect(0, 0, m.Width(), m.Height())
	dst := image.NewPaletted(r, cp)
	draw.FloydSteinberg.Draw(dst, r, src, sp)

	q := NewIndexed(m.Width(), m.Height())
	for y := 0; y < q.Height; y++ {
		for x := 0; x < q.Width; x++ {
			q.Set(x, y, int(dst.ColorIndexAt(x, y)))
		}
	}
	return q
}
