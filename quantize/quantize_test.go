package quantize

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/bodgit/img2xlsx/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grid struct {
	w, h int
	pix  []palette.RGB
}

func (g *grid) Width() int                   { return g.w }
func (g *grid) Height() int                  { return g.h }
func (g *grid) PixelAt(x, y int) palette.RGB { return g.pix[y*g.w+x] }

func randomGrid(w, h int, seed int64) *grid {
	r := rand.New(rand.NewSource(seed))
	g := &grid{w: w, h: h, pix: make([]palette.RGB, w*h)}
	for i := range g.pix {
		g.pix[i] = palette.RGB{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256))}
	}
	return g
}

func xterm(t *testing.T) *palette.Palette {
	t.Helper()
	p, ok := palette.Builtin("xterm256")
	require.True(t, ok)
	return p
}

// Brute force nearest, independent of the palette implementation
func nearest(p *palette.Palette, c palette.RGB) int {
	best := 0
	for i := 1; i < p.Len(); i++ {
		if palette.Distance(c, p.ColorAt(i)) < palette.Distance(c, p.ColorAt(best)) {
			best = i
		}
	}
	return best
}

func TestQuantizeNearest(t *testing.T) {
	p := xterm(t)
	g := randomGrid(13, 7, 1)

	q, err := Quantize(g, p, Options{})
	require.NoError(t, err)
	assert.Equal(t, 13, q.Width)
	assert.Equal(t, 7, q.Height)
	require.Len(t, q.Pix, 13*7)

	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			assert.Equal(t, nearest(p, g.PixelAt(x, y)), q.At(x, y), "pixel (%d, %d)", x, y)
		}
	}
}

func TestQuantizeFixedPoint(t *testing.T) {
	p, err := palette.New([]palette.RGB{{R: 0, G: 0, B: 0}, {R: 0xff, G: 0, B: 0}, {R: 0, G: 0x80, B: 0x40}, {R: 0x12, G: 0x34, B: 0x56}})
	require.NoError(t, err)

	r := rand.New(rand.NewSource(2))
	g := &grid{w: 9, h: 5, pix: make([]palette.RGB, 45)}
	for i := range g.pix {
		g.pix[i] = p.ColorAt(r.Intn(p.Len()))
	}

	for _, dither := range []bool{false, true} {
		q, err := Quantize(g, p, Options{Dither: dither})
		require.NoError(t, err)
		for y := 0; y < g.h; y++ {
			for x := 0; x < g.w; x++ {
				assert.Equal(t, g.PixelAt(x, y), p.ColorAt(q.At(x, y)), "dither %v pixel (%d, %d)", dither, x, y)
			}
		}
	}
}

func TestQuantizeIndexRange(t *testing.T) {
	for _, size := range []int{1, 2, 16, 256} {
		colors := make([]palette.RGB, size)
		for i := range colors {
			colors[i] = palette.RGB{R: uint8(i), G: uint8(255 - i), B: uint8(i * 7)}
		}
		p, err := palette.New(colors)
		require.NoError(t, err)

		for _, dither := range []bool{false, true} {
			q, err := Quantize(randomGrid(20, 20, int64(size)), p, Options{Dither: dither})
			require.NoError(t, err)
			for _, v := range q.Pix {
				assert.GreaterOrEqual(t, v, 0)
				assert.Less(t, v, size)
			}
		}
	}
}

func TestQuantizeDeterministic(t *testing.T) {
	p := xterm(t)
	g := randomGrid(32, 32, 3)

	for _, dither := range []bool{false, true} {
		a, err := Quantize(g, p, Options{Dither: dither})
		require.NoError(t, err)
		b, err := Quantize(g, p, Options{Dither: dither})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestQuantizeLab(t *testing.T) {
	p := xterm(t)
	m := p.Matcher(palette.MetricLab)

	g := randomGrid(8, 8, 4)
	q, err := Quantize(g, m, Options{})
	require.NoError(t, err)
	for i, v := range q.Pix {
		assert.Equal(t, m.NearestIndex(g.pix[i]), v)
	}
}

func TestQuantizeErrors(t *testing.T) {
	p := xterm(t)

	_, err := Quantize(&grid{}, p, Options{})
	assert.ErrorIs(t, err, ErrEmptyImage)

	colors := make([]palette.RGB, 257)
	big, err := palette.New(colors)
	require.NoError(t, err)
	_, err = Quantize(randomGrid(2, 2, 5), big, Options{Dither: true})
	assert.ErrorIs(t, err, ErrDitherPalette)
}

type emptyPalette struct{}

func (emptyPalette) Len() int                     { return 0 }
func (emptyPalette) ColorAt(int) palette.RGB      { return palette.RGB{} }
func (emptyPalette) NearestIndex(palette.RGB) int { return 0 }

// A broken palette that reports an index it does not have
type brokenPalette struct {
	*palette.Palette
}

func (b brokenPalette) NearestIndex(palette.RGB) int {
	return b.Len()
}

func TestQuantizeInvariant(t *testing.T) {
	_, err := Quantize(randomGrid(2, 2, 6), emptyPalette{}, Options{})
	assert.ErrorIs(t, err, ErrEmptyPalette)

	_, err = Quantize(randomGrid(3, 2, 6), brokenPalette{xterm(t)}, Options{})
	var oor *IndexOutOfRangeError
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, 0, oor.X)
	assert.Equal(t, 0, oor.Y)
	assert.Equal(t, 256, oor.Index)
	assert.Equal(t, 256, oor.Size)
}

func TestValidate(t *testing.T) {
	q := NewIndexed(3, 2)
	require.NoError(t, q.Validate(1))

	q.Set(2, 1, 5)
	var oor *IndexOutOfRangeError
	require.True(t, errors.As(q.Validate(5), &oor))
	assert.Equal(t, 2, oor.X)
	assert.Equal(t, 1, oor.Y)
	assert.NoError(t, q.Validate(6))

	q.Pix = q.Pix[:5]
	assert.Error(t, q.Validate(6))
}

func TestFromImage(t *testing.T) {
	// Bounds that do not start at the origin
	m := image.NewRGBA(image.Rect(10, 20, 13, 22))
	for y := 20; y < 22; y++ {
		for x := 10; x < 13; x++ {
			m.Set(x, y, color.Black)
		}
	}
	m.Set(10, 20, color.RGBA{0xff, 0, 0, 0xff})
	m.Set(12, 21, color.RGBA{0, 0, 0xff, 0xff})

	img := FromImage(m)
	assert.Equal(t, 3, img.Width())
	assert.Equal(t, 2, img.Height())
	assert.Equal(t, palette.RGB{R: 0xff, G: 0, B: 0}, img.PixelAt(0, 0))
	assert.Equal(t, palette.RGB{R: 0, G: 0, B: 0xff}, img.PixelAt(2, 1))

	p, err := palette.New([]palette.RGB{{R: 0, G: 0, B: 0}, {R: 0xff, G: 0, B: 0}, {R: 0, G: 0, B: 0xff}})
	require.NoError(t, err)
	for _, dither := range []bool{false, true} {
		q, err := Quantize(img, p, Options{Dither: dither})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0, 0, 0, 0, 2}, q.Pix)
	}
}

// Hides every method but those of Palette
type plainPalette struct {
	Palette
}

func TestDitherColorPalette(t *testing.T) {
	p := xterm(t)
	m := randomGrid(16, 12, 7)

	want, err := Quantize(m, plainPalette{p}, Options{Dither: true})
	require.NoError(t, err)

	got, err := Quantize(m, p, Options{Dither: true})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
