package palette

import (
	"sort"
	"strings"
)

// BuiltinPrefix marks a palette source as one of the built-in tables rather
// than a file, for example "builtin:xterm256".
const BuiltinPrefix = "builtin:"

// Default is the palette source used when none is configured.
const Default = BuiltinPrefix + "xterm256"

// The sixteen system colors at the start of the xterm table.
var systemColors = [16]RGB{
	{0x00, 0x00, 0x00}, // Black
	{0x80, 0x00, 0x00}, // Maroon
	{0x00, 0x80, 0x00}, // Green
	{0x80, 0x80, 0x00}, // Olive
	{0x00, 0x00, 0x80}, // Navy
	{0x80, 0x00, 0x80}, // Purple
	{0x00, 0x80, 0x80}, // Teal
	{0xc0, 0xc0, 0xc0}, // Silver
	{0x80, 0x80, 0x80}, // Grey
	{0xff, 0x00, 0x00}, // Red
	{0x00, 0xff, 0x00}, // Lime
	{0xff, 0xff, 0x00}, // Yellow
	{0x00, 0x00, 0xff}, // Blue
	{0xff, 0x00, 0xff}, // Fuchsia
	{0x00, 0xff, 0xff}, // Aqua
	{0xff, 0xff, 0xff}, // White
}

var cubeLevels = [6]uint8{0x00, 0x5f, 0x87, 0xaf, 0xd7, 0xff}

func xterm256() []RGB {
	colors := make([]RGB, 0, 256)
	colors = append(colors, systemColors[:]...)

	// 6x6x6 color cube
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				colors = append(colors, RGB{cubeLevels[r], cubeLevels[g], cubeLevels[b]})
			}
		}
	}

	// Greyscale ramp, 0x08 to 0xee
	for i := 0; i < 24; i++ {
		v := uint8(0x08 + i*0x0a)
		colors = append(colors, RGB{v, v, v})
	}

	return colors
}

func ansi16() []RGB {
	return append([]RGB(nil), systemColors[:]...)
}

func grayscale() []RGB {
	colors := make([]RGB, 256)
	for i := range colors {
		colors[i] = RGB{uint8(i), uint8(i), uint8(i)}
	}
	return colors
}

var builtins = map[string]func() []RGB{
	"xterm256":  xterm256,
	"ansi16":    ansi16,
	"grayscale": grayscale,
}

// Builtin returns the named built-in palette.
func Builtin(name string) (*Palette, bool) {
	fn, ok := builtins[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	p, err := New(fn())
	if err != nil {
		return nil, false
	}
	return p, true
}

// BuiltinNames returns the names of the built-in palettes in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
