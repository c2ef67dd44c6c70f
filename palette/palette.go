/*
Package palette implements the fixed, ordered color tables that frames are
quantized against.

A palette is loaded once, either from a file or from one of the built-in
tables, and is never modified afterwards. The position of a color in the table
is its identity; quantized images refer to colors only by that index.
*/
package palette

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image/color"
)

// ErrEmpty is returned when a palette would contain no colors.
var ErrEmpty = errors.New("palette: no colors")

// RGB is a single opaque palette entry. It implements color.Color.
type RGB struct {
	R, G, B uint8
}

// RGBA implements the color.Color interface.
func (c RGB) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// Hex returns the color as six uppercase hexadecimal digits, two per channel.
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return "#" + c.Hex()
}

// FromColor converts any color.Color to an RGB, dropping alpha.
func FromColor(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{n.R, n.G, n.B}
}

// Distance returns the squared Euclidean distance between two colors over the
// three channels.
func Distance(a, b RGB) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

// Palette is an immutable ordered table of colors.
type Palette struct {
	colors []RGB
}

// New returns a palette holding a copy of colors in the given order.
func New(colors []RGB) (*Palette, error) {
	if len(colors) == 0 {
		return nil, ErrEmpty
	}
	return &Palette{
		colors: append([]RGB(nil), colors...),
	}, nil
}

// Len returns the number of colors in the palette.
func (p *Palette) Len() int {
	return len(p.colors)
}

// ColorAt returns the color at index i. It panics if i is out of range.
func (p *Palette) ColorAt(i int) RGB {
	return p.colors[i]
}

// NearestIndex returns the index of the color closest to c by squared
// Euclidean RGB distance. Ties go to the lowest index.
func (p *Palette) NearestIndex(c RGB) int {
	best, bestDist := 0, int(^uint(0)>>1)
	for i, pc := range p.colors {
		d := Distance(c, pc)
		if d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best
}

// Colors returns a copy of the palette entries.
func (p *Palette) Colors() []RGB {
	return append([]RGB(nil), p.colors...)
}

// ColorPalette returns the palette as a color.Palette for use with the image
// packages.
func (p *Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, len(p.colors))
	for i, c := range p.colors {
		cp[i] = c
	}
	return cp
}

// Fingerprint identifies the ordered contents of the palette. Two palettes
// with the same colors in the same order share a fingerprint.
func (p *Palette) Fingerprint() string {
	h := crc32.NewIEEE()
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(p.colors)))
	h.Write(n[:])
	for _, c := range p.colors {
		h.Write([]byte{c.R, c.G, c.B})
	}
	return fmt.Sprintf("%.*X", crc32.Size<<1, h.Sum(nil))
}
