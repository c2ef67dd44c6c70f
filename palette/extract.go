package palette

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// Method selects how Extract derives a palette from an image.
type Method string

const (
	// MethodMedianCut splits the color space by median cut.
	MethodMedianCut Method = "median-cut"
	// MethodDominant picks the most dominant colors.
	MethodDominant Method = "dominant"
	// MethodKMeans clusters a sample of the pixels with k-means. The result
	// is not deterministic.
	MethodKMeans Method = "kmeans"
)

// Maximum number of pixels fed to k-means
const maxSamples = 12000

// ParseMethod returns the Method named by s. The empty string selects
// MethodMedianCut.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodMedianCut:
		return MethodMedianCut, nil
	case MethodDominant:
		return MethodDominant, nil
	case MethodKMeans:
		return MethodKMeans, nil
	default:
		return "", fmt.Errorf("palette: unknown extraction method %q", s)
	}
}

// Extract derives a palette of at most n colors from img. The colors are
// ordered from darkest to brightest.
func Extract(img image.Image, n int, method Method) (*Palette, error) {
	if n <= 0 {
		return nil, errors.New("palette: color count must be positive")
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("palette: image is empty")
	}

	var colors []RGB
	switch method {
	case MethodMedianCut, "":
		colors = medianCut(img, n)
	case MethodDominant:
		for _, c := range dominantcolor.FindWeight(img, n) {
			colors = append(colors, FromColor(c.RGBA))
		}
		if len(colors) == 0 {
			colors = medianCut(img, n)
		}
	case MethodKMeans:
		var err error
		if colors, err = extractKMeans(img, n); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("palette: unknown extraction method %q", method)
	}

	colors = dedupe(colors)
	sortByLuminance(colors)

	return New(colors)
}

func medianCut(img image.Image, n int) []RGB {
	q := quantize.MedianCutQuantizer{}
	var colors []RGB
	for _, c := range q.Quantize(make(color.Palette, 0, n), img) {
		colors = append(colors, FromColor(c))
	}
	return colors
}

func extractKMeans(img image.Image, n int) ([]RGB, error) {
	b := img.Bounds()

	// Subsample large images
	step := 1
	if pixels := b.Dx() * b.Dy(); pixels > maxSamples {
		step = int(math.Sqrt(float64(pixels)/float64(maxSamples))) + 1
	}

	var dataset clusters.Observations
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := FromColor(img.At(x, y))
			dataset = append(dataset, clusters.Coordinates{
				float64(c.R) / 255.0,
				float64(c.G) / 255.0,
				float64(c.B) / 255.0,
			})
		}
	}

	k := n
	if k > len(dataset) {
		k = len(dataset)
	}

	cc, err := kmeans.New().Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("palette: kmeans: %w", err)
	}

	colors := make([]RGB, 0, len(cc))
	for _, c := range cc {
		if len(c.Observations) == 0 || len(c.Center) < 3 {
			continue
		}
		r, g, b := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped().RGB255()
		colors = append(colors, RGB{r, g, b})
	}
	return colors, nil
}

func dedupe(colors []RGB) []RGB {
	seen := make(map[RGB]struct{}, len(colors))
	out := colors[:0]
	for _, c := range colors {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func luminance(c RGB) float64 {
	r, g, b := toColorful(c).LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// Darkest first, ties broken by channel values so the order is total
func sortByLuminance(colors []RGB) {
	sort.SliceStable(colors, func(i, j int) bool {
		li, lj := luminance(colors[i]), luminance(colors[j])
		if li != lj {
			return li < lj
		}
		return colors[i].Hex() < colors[j].Hex()
	})
}
