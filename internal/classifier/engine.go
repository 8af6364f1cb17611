package classifier

import (
	"image"

	"github.com/anime-shed/frame-classifier/internal/analyzer"
	"github.com/anime-shed/frame-classifier/pkg/models"
)

// Engine runs feature extraction followed by rule classification.
type Engine struct {
	extractor  analyzer.FeatureExtractor
	classifier *Classifier
}

// NewEngine combines an extractor with a classifier.
func NewEngine(extractor analyzer.FeatureExtractor, classifier *Classifier) *Engine {
	return &Engine{extractor: extractor, classifier: classifier}
}

// Domain returns the name of the rule table the engine evaluates.
func (e *Engine) Domain() string {
	return e.classifier.Table().Name
}

// Table returns the rule table the engine evaluates.
func (e *Engine) Table() *models.RuleTable {
	return e.classifier.Table()
}

// ClassifyImage extracts features from img and classifies them.
// Extraction errors (analyzer.ErrInvalidImage, analyzer.ErrAnalysisFailed)
// are returned unchanged and the classifier is not invoked.
func (e *Engine) ClassifyImage(img image.Image, rng RandomSource) (models.ClassificationResult, error) {
	fv, err := e.extractor.Extract(img)
	if err != nil {
		return models.ClassificationResult{}, err
	}
	return e.classifier.Classify(fv, rng)
}
