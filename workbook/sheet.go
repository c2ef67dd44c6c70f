/*
Package workbook builds spreadsheet sheets from rendered frames and writes
them, in order, to a single xlsx workbook.

Each pixel of a frame becomes one cell with a solid fill. Every column of a
sheet has the same width; one width unit is roughly seven pixels on screen.
Row heights are left at the default.
*/
package workbook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bodgit/img2xlsx/render"
	"github.com/xuri/excelize/v2"
)

const (
	// DefaultColWidth makes cells roughly square at the default row height.
	DefaultColWidth = 2.25
	// DefaultZoom is the default view zoom percentage.
	DefaultZoom = 25.0

	// MaxColWidth is the widest column the format allows.
	MaxColWidth = excelize.MaxColumnWidth
	// MaxNameLength is the longest sheet name the format allows.
	MaxNameLength = excelize.MaxSheetNameLength

	maxZoom = 100
)

// ErrInvalidSheet is returned when a sheet cannot be built from the given
// frame or options.
var ErrInvalidSheet = errors.New("workbook: invalid sheet")

// Options control how a frame is laid out on a sheet.
type Options struct {
	// ColWidth is the width of every column.
	ColWidth float64
	// Zoom is the view zoom percentage, from 0 to 100. Nil leaves the zoom
	// unset.
	Zoom *float64
}

// Sheet is one frame laid out as a grid of filled cells.
type Sheet struct {
	Name     string
	Width    int
	Height   int
	Fills    []string // row by row
	ColWidth float64
	Zoom     *float64
}

// Fill returns the fill color of the cell at row, col.
func (s *Sheet) Fill(row, col int) string {
	return s.Fills[row*s.Width+col]
}

func validName(name string) error {
	switch {
	case name == "":
		return errors.New("empty name")
	case len([]rune(name)) > MaxNameLength:
		return fmt.Errorf("name %q longer than %d characters", name, MaxNameLength)
	case strings.ContainsAny(name, `:\/?*[]`):
		return fmt.Errorf("name %q contains an invalid character", name)
	}
	return nil
}

// Build lays out frame f as a sheet called name. The sheet takes ownership
// of the frame's cells.
func Build(f *render.Frame, name string, opts Options) (*Sheet, error) {
	if err := validName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Cells) != f.Width*f.Height {
		return nil, fmt.Errorf("%w: %dx%d frame with %d cells", ErrInvalidSheet, f.Width, f.Height, len(f.Cells))
	}
	if f.Width > excelize.MaxColumns || f.Height > excelize.TotalRows {
		return nil, fmt.Errorf("%w: %dx%d frame exceeds %dx%d cells", ErrInvalidSheet, f.Width, f.Height, excelize.MaxColumns, excelize.TotalRows)
	}
	if opts.ColWidth <= 0 || opts.ColWidth > MaxColWidth {
		return nil, fmt.Errorf("%w: column width %g outside (0, %d]", ErrInvalidSheet, opts.ColWidth, MaxColWidth)
	}

	s := &Sheet{
		Name:     name,
		Width:    f.Width,
		Height:   f.Height,
		Fills:    f.Cells,
		ColWidth: opts.ColWidth,
	}

	if opts.Zoom != nil {
		z := *opts.Zoom
		if z < 0 || z > maxZoom {
			return nil, fmt.Errorf("%w: zoom %g outside [0, %d]", ErrInvalidSheet, z, maxZoom)
		}
		s.Zoom = &z
	}

	return s, nil
}
