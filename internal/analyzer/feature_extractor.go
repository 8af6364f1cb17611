package analyzer

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anime-shed/frame-classifier/pkg/models"
)

// DefaultGridDensity is the number of sample points per axis.
const DefaultGridDensity = 10

// gridExtractor samples pixels on a regular grid
type gridExtractor struct {
	density int
}

// NewFeatureExtractor creates an extractor sampling roughly density×density points.
// Non-positive densities fall back to DefaultGridDensity.
func NewFeatureExtractor(density int) FeatureExtractor {
	if density <= 0 {
		density = DefaultGridDensity
	}
	return &gridExtractor{density: density}
}

// Stride returns the sampling step for one axis of the given length.
func Stride(length, density int) int {
	if density <= 0 {
		density = DefaultGridDensity
	}
	step := length / density
	if step < 1 {
		return 1
	}
	return step
}

// Extract walks the sampling grid and accumulates per-channel statistics.
// Unreadable or out-of-bounds points are skipped.
func (e *gridExtractor) Extract(img image.Image) (models.FeatureVector, error) {
	if img == nil {
		return models.FeatureVector{}, fmt.Errorf("%w: nil image", ErrAnalysisFailed)
	}

	bounds, ok := imageBounds(img)
	if !ok {
		return models.FeatureVector{}, fmt.Errorf("%w: image bounds unavailable", ErrAnalysisFailed)
	}
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return models.FeatureVector{}, fmt.Errorf("%w: %dx%d image has no pixels", ErrInvalidImage, width, height)
	}

	stepX := Stride(width, e.density)
	stepY := Stride(height, e.density)

	var acc pixelAccumulator
	for x := 0; x < width; x += stepX {
		for y := 0; y < height; y += stepY {
			pt := image.Pt(bounds.Min.X+x, bounds.Min.Y+y)
			if !pt.In(bounds) {
				continue
			}
			r, g, b, ok := readPixel(img, pt.X, pt.Y)
			if !ok {
				continue
			}
			acc.add(r, g, b)
		}
	}

	if acc.count == 0 {
		return models.FeatureVector{}, fmt.Errorf("%w: none of the sampled pixels were readable", ErrInvalidImage)
	}

	fv := acc.vector()
	if !finite(fv.MeanR, fv.MeanG, fv.MeanB, fv.Variance) {
		return models.FeatureVector{}, fmt.Errorf("%w: non-finite statistics", ErrAnalysisFailed)
	}
	return fv, nil
}

// imageBounds guards against image implementations that panic on Bounds.
func imageBounds(img image.Image) (bounds image.Rectangle, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return img.Bounds(), true
}

// readPixel returns non-premultiplied 8-bit channels at (x, y).
// A nil color or a panicking At is reported as unreadable.
func readPixel(img image.Image, x, y int) (r, g, b float64, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	c := img.At(x, y)
	if c == nil {
		return 0, 0, 0, false
	}
	n, isNRGBA := color.NRGBAModel.Convert(c).(color.NRGBA)
	if !isNRGBA {
		return 0, 0, 0, false
	}
	return float64(n.R), float64(n.G), float64(n.B), true
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
