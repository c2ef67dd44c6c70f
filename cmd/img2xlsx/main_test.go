package main

import (
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/bodgit/img2xlsx"
	"github.com/bodgit/img2xlsx/config"
	"github.com/bodgit/img2xlsx/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("convert", flag.ContinueOnError)
	set.String("frames-dir", "", "")
	set.String("output", "", "")
	set.Int("head", 0, "")
	set.Float64("zoomscale", 0, "")
	set.Bool("no-zoom", false, "")
	set.Float64("colwidth", 0, "")
	set.String("palette", "", "")
	set.String("metric", "", "")
	set.Bool("dither", false, "")
	set.Int("workers", 0, "")
	set.Int("digits", 0, "")
	set.String("ext", "", "")
	set.String("cache", "", "")
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestApplyConvertFlags(t *testing.T) {
	cfg := config.Default()
	c := newContext(t, "--output", "movie.xlsx", "--head", "5", "--zoomscale", "60", "--workers", "2", "--metric", "lab")
	require.NoError(t, applyConvertFlags(c, &cfg))

	assert.Equal(t, "movie.xlsx", cfg.Output.Path)
	assert.Equal(t, 5, cfg.Run.Head)
	assert.Equal(t, 2, cfg.Run.Workers)
	assert.Equal(t, "lab", cfg.Palette.Metric)
	require.NotNil(t, cfg.ZoomScale())
	assert.Equal(t, 60.0, *cfg.ZoomScale())

	// Untouched values keep their defaults
	assert.Equal(t, "frames", cfg.Input.FramesDir)
	assert.Equal(t, 2.25, cfg.Output.ColWidth)
	assert.Equal(t, palette.Default, cfg.Palette.Source)
}

func TestApplyConvertFlagsNoZoom(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, applyConvertFlags(newContext(t, "--no-zoom"), &cfg))
	assert.Nil(t, cfg.ZoomScale())

	cfg = config.Default()
	assert.Error(t, applyConvertFlags(newContext(t, "--no-zoom", "--zoomscale", "50"), &cfg))
}

func TestApplyConvertFlagsInvalid(t *testing.T) {
	for _, args := range [][]string{
		{"--output", "movie.csv"},
		{"--workers", "0"},
		{"--colwidth", "-1"},
		{"--metric", "hsv"},
		{"--palette", "builtin:missing"},
	} {
		cfg := config.Default()
		assert.Error(t, applyConvertFlags(newContext(t, args...), &cfg), args)
	}
}

func TestRenderPalette(t *testing.T) {
	p, err := palette.New([]palette.RGB{{R: 0xff, G: 0, B: 0}, {R: 0, G: 0x80, B: 0xff}})
	require.NoError(t, err)

	out := renderPalette(p)
	assert.Contains(t, out, "#FF0000")
	assert.Contains(t, out, "#0080FF")
	assert.Contains(t, out, "128")
}

func TestRenderBuiltins(t *testing.T) {
	out := renderBuiltins()
	for _, name := range palette.BuiltinNames() {
		assert.Contains(t, out, palette.BuiltinPrefix+name)
	}
	assert.Contains(t, out, "256")
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(&img2xlsx.Result{
		RunID:   "run-1",
		Output:  "out.xlsx",
		Found:   1200,
		Frames:  1200,
		Colors:  16,
		Elapsed: 1500 * time.Millisecond,
	}, "builtin:cga")

	// Fields have no header row
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 9)
	assert.Contains(t, lines[1], "Workbook")
	assert.Contains(t, lines[1], "out.xlsx")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "builtin:cga (16 colors)")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, lines[7], "run-1")
}

func TestRenderColumns(t *testing.T) {
	out := renderColumns([]string{"Name", "Count"}, [][]string{{"a", "1"}, {"b", "100"}}, 2)

	lines := strings.Split(out, "\n")
	// Border, header, separator, two rows, border
	require.Len(t, lines, 6)
	// Headers are upper-cased by the style
	assert.Contains(t, strings.ToUpper(lines[1]), "NAME")
	assert.Contains(t, lines[3], "   1 │")
	assert.Contains(t, lines[4], " 100 │")
}
