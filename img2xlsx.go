/*
Package img2xlsx converts a numbered sequence of image frames into a single
xlsx workbook.

Every frame becomes one sheet, named after its zero-padded index, and every
pixel of a frame becomes one cell filled with the nearest color from a fixed
palette. Sheets appear in the workbook in frame order regardless of how many
frames are processed concurrently.
*/
package img2xlsx

import (
	"io"
	"log/slog"
)

// Converter turns frame directories into workbooks.
type Converter struct {
	cache  *FrameCache
	logger *slog.Logger
}

// New returns a Converter logging to logger. cache may be nil, in which case
// every frame is quantized afresh.
func New(logger *slog.Logger, cache *FrameCache) *Converter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Converter{
		cache:  cache,
		logger: logger,
	}
}
