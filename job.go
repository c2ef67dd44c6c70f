package img2xlsx

import (
	"fmt"
	"time"

	"github.com/bodgit/img2xlsx/frame"
	"github.com/bodgit/img2xlsx/palette"
	"github.com/bodgit/img2xlsx/workbook"
)

// Job describes one conversion.
type Job struct {
	// FramesDir holds the numbered frame files.
	FramesDir string
	// Output is the path of the workbook to write.
	Output string

	// Palette is the fixed set of colors every cell is filled with.
	Palette *palette.Palette
	// Metric selects how colors are matched, the default is MetricRGB.
	Metric palette.Metric
	// Dither enables Floyd-Steinberg error diffusion. Error diffusion
	// always matches colors in RGB so it cannot be combined with MetricLab.
	Dither bool

	// Head limits the conversion to the first Head frames. Zero converts
	// every frame.
	Head int
	// ColWidth is the width of every column, zero selects
	// workbook.DefaultColWidth.
	ColWidth float64
	// Zoom is the view zoom percentage of every sheet. Nil leaves it unset.
	Zoom *float64

	// Workers is the number of frames processed at once, at least one.
	Workers int
	// Naming describes the frame file names, the zero value selects
	// frame.DefaultNaming.
	Naming frame.Naming

	// Progress, if set, is called each time a sheet is added to the
	// workbook.
	Progress func(done, total int)
}

func (j Job) withDefaults() (Job, error) {
	if j.Palette == nil {
		return j, ErrNoPalette
	}
	if j.Head < 0 {
		return j, fmt.Errorf("img2xlsx: negative head %d", j.Head)
	}
	if j.Metric == "" {
		j.Metric = palette.MetricRGB
	}
	if _, err := palette.ParseMetric(string(j.Metric)); err != nil {
		return j, err
	}
	if j.Dither && j.Metric != palette.MetricRGB {
		return j, ErrDitherMetric
	}
	if j.ColWidth == 0 {
		j.ColWidth = workbook.DefaultColWidth
	}
	if j.Workers < 1 {
		j.Workers = 1
	}
	if j.Naming == (frame.Naming{}) {
		j.Naming = frame.DefaultNaming
	}
	return j, nil
}

// Result summarizes a finished conversion.
type Result struct {
	RunID     string
	Output    string
	Found     int // frame files in the directory
	Frames    int // sheets in the workbook
	Colors    int
	CacheHits int
	Elapsed   time.Duration
}
