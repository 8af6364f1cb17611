package classifier

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/anime-shed/frame-classifier/internal/analyzer"
	"github.com/anime-shed/frame-classifier/internal/ruleset"
)

func filledImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// halfBlank hides the right half of the image.
type halfBlank struct{ *image.RGBA }

func (h halfBlank) At(x, y int) color.Color {
	if x >= h.Rect.Dx()/2 {
		return nil
	}
	return h.RGBA.At(x, y)
}

func TestEngine_ClassifyImage(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		fill     color.RGBA
		category string
	}{
		{"dark specimen", ruleset.Biological, color.RGBA{30, 30, 30, 255}, "insects"},
		{"dark artifact", ruleset.Artifact, color.RGBA{30, 30, 30, 255}, "bronze"},
		{"marble", ruleset.Artifact, color.RGBA{220, 220, 220, 255}, "sculpture"},
		{"ocean", ruleset.Biological, color.RGBA{20, 90, 180, 255}, "fish"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(analyzer.NewFeatureExtractor(10), mustClassifier(t, tt.table))
			result, err := engine.ClassifyImage(filledImage(120, 80, tt.fill), NewSeededSource(1))
			if err != nil {
				t.Fatalf("ClassifyImage failed: %v", err)
			}
			if result.Category != tt.category {
				t.Errorf("Category = %s, want %s", result.Category, tt.category)
			}
			if result.Domain != tt.table {
				t.Errorf("Domain = %s, want %s", result.Domain, tt.table)
			}
			if result.Features.SampleCount != 100 {
				t.Errorf("SampleCount = %d, want 100", result.Features.SampleCount)
			}
			if result.Confidence < 0.70 || result.Confidence > 0.94 {
				t.Errorf("Confidence = %f outside [0.70, 0.94]", result.Confidence)
			}
		})
	}
}

func TestEngine_DegenerateImage(t *testing.T) {
	engine := NewEngine(analyzer.NewFeatureExtractor(10), mustClassifier(t, ruleset.Biological))

	_, err := engine.ClassifyImage(image.NewRGBA(image.Rect(0, 0, 0, 0)), NewSeededSource(1))
	if !errors.Is(err, analyzer.ErrInvalidImage) {
		t.Errorf("Expected ErrInvalidImage, got %v", err)
	}
}

func TestEngine_HalfUnreadableImage(t *testing.T) {
	engine := NewEngine(analyzer.NewFeatureExtractor(10), mustClassifier(t, ruleset.Biological))
	img := halfBlank{filledImage(100, 100, color.RGBA{30, 30, 30, 255})}

	result, err := engine.ClassifyImage(img, NewSeededSource(3))
	if err != nil {
		t.Fatalf("ClassifyImage failed: %v", err)
	}
	if result.Features.SampleCount != 50 {
		t.Errorf("SampleCount = %d, want 50", result.Features.SampleCount)
	}
	if result.Category != "insects" {
		t.Errorf("Category = %s, want insects", result.Category)
	}
}
