package palette

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmpty(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestHex(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9A-F]{6}$`)

	p, ok := Builtin("xterm256")
	require.True(t, ok)
	for i := 0; i < p.Len(); i++ {
		assert.Regexp(t, hexPattern, p.ColorAt(i).Hex())
	}

	assert.Equal(t, "0A0B0C", RGB{0x0a, 0x0b, 0x0c}.Hex())
	assert.Equal(t, "FFFFFF", RGB{0xff, 0xff, 0xff}.Hex())
}

func TestNearestIndex(t *testing.T) {
	p, err := New([]RGB{
		{0, 0, 0},
		{255, 255, 255},
		{255, 0, 0},
		{255, 0, 0},
	})
	require.NoError(t, err)

	tables := []struct {
		name string
		in   RGB
		want int
	}{
		{"exact", RGB{255, 255, 255}, 1},
		{"near black", RGB{10, 20, 30}, 0},
		{"near red", RGB{200, 10, 10}, 2},
		{"duplicate takes lowest", RGB{255, 0, 0}, 2},
		{"midpoint tie takes lowest", RGB{0, 0, 0}, 0},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.Equal(t, table.want, p.NearestIndex(table.in))
		})
	}
}

func TestNearestIndexTie(t *testing.T) {
	// Equidistant from both entries
	p, err := New([]RGB{{0, 0, 0}, {2, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, 0, p.NearestIndex(RGB{1, 0, 0}))

	p, err = New([]RGB{{2, 0, 0}, {0, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, 0, p.NearestIndex(RGB{1, 0, 0}))
}

func TestLabMatcher(t *testing.T) {
	p, ok := Builtin("xterm256")
	require.True(t, ok)

	m := p.Matcher(MetricLab)
	assert.Equal(t, p.Len(), m.Len())
	for i := 0; i < p.Len(); i++ {
		c := p.ColorAt(i)
		assert.Equal(t, c, m.ColorAt(m.NearestIndex(c)))
	}

	assert.Same(t, p, p.Matcher(MetricRGB))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricRGB, m)

	m, err = ParseMetric("LAB")
	require.NoError(t, err)
	assert.Equal(t, MetricLab, m)

	_, err = ParseMetric("hsv")
	assert.Error(t, err)
}

func TestBuiltins(t *testing.T) {
	tables := map[string]int{
		"xterm256":  256,
		"ansi16":    16,
		"grayscale": 256,
	}
	for name, size := range tables {
		p, ok := Builtin(name)
		require.True(t, ok, name)
		assert.Equal(t, size, p.Len(), name)
	}

	p, _ := Builtin("xterm256")
	assert.Equal(t, RGB{0x00, 0x00, 0x00}, p.ColorAt(16))
	assert.Equal(t, RGB{0x5f, 0x00, 0x00}, p.ColorAt(52))
	assert.Equal(t, RGB{0xff, 0xff, 0xff}, p.ColorAt(231))
	assert.Equal(t, RGB{0x08, 0x08, 0x08}, p.ColorAt(232))
	assert.Equal(t, RGB{0xee, 0xee, 0xee}, p.ColorAt(255))

	_, ok := Builtin("nope")
	assert.False(t, ok)
	assert.Equal(t, []string{"ansi16", "grayscale", "xterm256"}, BuiltinNames())
}

func TestFingerprint(t *testing.T) {
	a, _ := New([]RGB{{1, 2, 3}, {4, 5, 6}})
	b, _ := New([]RGB{{1, 2, 3}, {4, 5, 6}})
	c, _ := New([]RGB{{4, 5, 6}, {1, 2, 3}})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 8)
}

func TestColorPalette(t *testing.T) {
	p, _ := New([]RGB{{0x12, 0x34, 0x56}})
	cp := p.ColorPalette()
	require.Len(t, cp, 1)
	assert.Equal(t, color.NRGBA{0x12, 0x34, 0x56, 0xff}, color.NRGBAModel.Convert(cp[0]))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, "colors.txt", `# a comment
0 0 0
255,128,0

#00FF7f
  10 20 30
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []RGB{{0, 0, 0}, {255, 128, 0}, {0, 255, 127}, {10, 20, 30}}, p.Colors())
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "colors.json", `[
		{"colorId": 0, "hexString": "#000000", "rgb": {"r": 0, "g": 0, "b": 0}, "name": "Black"},
		{"colorId": 1, "hexString": "#800000", "name": "Maroon"},
		[1, 2, 3]
	]`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []RGB{{0, 0, 0}, {0x80, 0, 0}, {1, 2, 3}}, p.Colors())
}

func TestLoadErrors(t *testing.T) {
	tables := []struct {
		name    string
		file    string
		content string
		line    int
		target  error
	}{
		{"empty text", "empty.txt", "# nothing\n\n", 0, ErrEmpty},
		{"arity", "arity.txt", "0 0 0\n1 2\n", 2, ErrMalformed},
		{"range", "range.txt", "0 0 0\n0 256 0\n", 2, ErrMalformed},
		{"negative", "negative.txt", "-1 0 0\n", 1, ErrMalformed},
		{"not a number", "nan.txt", "a b c\n", 1, ErrMalformed},
		{"json arity", "arity.json", `[[1,2,3],[1,2,3,4]]`, 2, ErrMalformed},
		{"json range", "range.json", `[{"rgb": {"r": 0, "g": 300, "b": 0}}]`, 1, ErrMalformed},
		{"json fraction", "fraction.json", `[[1.5, 2, 3]]`, 1, ErrMalformed},
		{"json empty", "empty.json", `[]`, 0, ErrEmpty},
		{"json syntax", "bad.json", `{`, 0, ErrMalformed},
		{"gpl header", "bad.gpl", "0 0 0\n", 1, ErrMalformed},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			path := writeFile(t, table.file, table.content)
			_, err := Load(path)
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, path, le.Source)
			assert.Equal(t, table.line, le.Line)
			assert.ErrorIs(t, err, table.target)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadBuiltin(t *testing.T) {
	p, err := Load(Default)
	require.NoError(t, err)
	assert.Equal(t, 256, p.Len())

	_, err = Load(BuiltinPrefix + "nope")
	assert.ErrorIs(t, err, ErrUnknownBuiltin)
}

func TestEncodeLoadRoundTrip(t *testing.T) {
	p, _ := Builtin("xterm256")
	path := filepath.Join(t.TempDir(), "xterm.gpl")
	require.NoError(t, Save(path, p))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "GIMP Palette\nName: xterm\n"))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p.Colors(), loaded.Colors())
	assert.Equal(t, p.Fingerprint(), loaded.Fingerprint())
}

func TestDecodeGPLNames(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("GIMP Palette\nName: test\nColumns: 4\n# comment\n255 0 0 Red\n  0 255 0\tBright Green\n")
	p, err := Decode(&buf, FormatGPL)
	require.NoError(t, err)
	assert.Equal(t, []RGB{{255, 0, 0}, {0, 255, 0}}, p.Colors())
}

func stripes() image.Image {
	m := image.NewRGBA(image.Rect(0, 0, 30, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 30; x++ {
			switch {
			case x < 10:
				m.Set(x, y, color.RGBA{0xff, 0, 0, 0xff})
			case x < 20:
				m.Set(x, y, color.RGBA{0, 0, 0xff, 0xff})
			default:
				m.Set(x, y, color.RGBA{0xff, 0xff, 0xff, 0xff})
			}
		}
	}
	return m
}

func TestExtract(t *testing.T) {
	for _, method := range []Method{MethodMedianCut, MethodDominant, MethodKMeans} {
		t.Run(string(method), func(t *testing.T) {
			p, err := Extract(stripes(), 3, method)
			require.NoError(t, err)
			assert.LessOrEqual(t, p.Len(), 3)
			assert.GreaterOrEqual(t, p.Len(), 1)

			// Darkest first
			for i := 1; i < p.Len(); i++ {
				assert.LessOrEqual(t, luminance(p.ColorAt(i-1)), luminance(p.ColorAt(i)))
			}
		})
	}

	_, err := Extract(stripes(), 0, MethodMedianCut)
	assert.Error(t, err)

	_, err = ParseMethod("octree")
	assert.Error(t, err)
}
