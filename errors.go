package img2xlsx

import (
	"errors"
	"fmt"
)

// Stage is a step in the processing of a single frame.
type Stage string

// Frames pass through these stages in order.
const (
	StageLoading    Stage = "loading"
	StageQuantizing Stage = "quantizing"
	StageRendering  Stage = "rendering"
	StageBuilding   Stage = "building"
	StageAppending  Stage = "appending"
)

var (
	// ErrNoFrames is returned when the frames directory holds no frames.
	ErrNoFrames = errors.New("img2xlsx: no frames found")
	// ErrNoPalette is returned when a job has no palette.
	ErrNoPalette = errors.New("img2xlsx: no palette")
	// ErrDitherMetric is returned when dithering is combined with a metric
	// other than MetricRGB.
	ErrDitherMetric = errors.New("img2xlsx: dithering only supports the rgb metric")
)

// FrameError reports the frame, and the stage of its processing, at which a
// conversion failed.
type FrameError struct {
	Index int
	Name  string
	Stage Stage
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (%s): %s: %v", e.Index, e.Name, e.Stage, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
