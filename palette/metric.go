package palette

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Metric selects how the distance between two colors is measured when
// looking for the nearest palette entry.
type Metric string

const (
	// MetricRGB is the squared Euclidean distance over the RGB channels.
	MetricRGB Metric = "rgb"
	// MetricLab is the Euclidean distance in CIE L*a*b* space.
	MetricLab Metric = "lab"
)

// ParseMetric returns the Metric named by s. The empty string selects
// MetricRGB.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricRGB:
		return MetricRGB, nil
	case MetricLab:
		return MetricLab, nil
	default:
		return "", fmt.Errorf("palette: unknown metric %q", s)
	}
}

// Matcher is a palette that can answer nearest color queries.
type Matcher interface {
	Len() int
	ColorAt(i int) RGB
	NearestIndex(c RGB) int
}

// Matcher returns p itself for MetricRGB, or a matcher measuring distance in
// L*a*b* space for MetricLab.
func (p *Palette) Matcher(m Metric) Matcher {
	if m == MetricLab {
		return newLabMatcher(p)
	}
	return p
}

type labMatcher struct {
	*Palette
	lab []colorful.Color
}

func newLabMatcher(p *Palette) *labMatcher {
	lab := make([]colorful.Color, len(p.colors))
	for i, c := range p.colors {
		lab[i] = toColorful(c)
	}
	return &labMatcher{
		Palette: p,
		lab:     lab,
	}
}

func toColorful(c RGB) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// NearestIndex returns the index of the entry closest to c in L*a*b* space.
// Ties go to the lowest index.
func (m *labMatcher) NearestIndex(c RGB) int {
	target := toColorful(c)
	best, bestDist := 0, -1.0
	for i, pc := range m.lab {
		d := target.DistanceLab(pc)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
