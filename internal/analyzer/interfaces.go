package analyzer

import (
	"errors"
	"image"

	"github.com/anime-shed/frame-classifier/pkg/models"
)

var (
	// ErrInvalidImage indicates that no pixel could be sampled.
	ErrInvalidImage = errors.New("invalid image")

	// ErrAnalysisFailed indicates an unexpected condition during extraction.
	ErrAnalysisFailed = errors.New("analysis failed")
)

// FeatureExtractor reduces an image to summary statistics.
// Implementations must not retain img after returning.
type FeatureExtractor interface {
	Extract(img image.Image) (models.FeatureVector, error)
}
