package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/frame-classifier/internal/analyzer"
	"github.com/anime-shed/frame-classifier/internal/classifier"
	apperrors "github.com/anime-shed/frame-classifier/internal/errors"
	"github.com/anime-shed/frame-classifier/internal/logger"
	"github.com/anime-shed/frame-classifier/internal/observer"
	"github.com/anime-shed/frame-classifier/internal/repository"
	"github.com/anime-shed/frame-classifier/internal/ruleset"
	"github.com/anime-shed/frame-classifier/internal/storage"
	"github.com/anime-shed/frame-classifier/pkg/models"
)

// ClassificationService turns image payloads into labelled predictions
type ClassificationService interface {
	Classify(ctx context.Context, request models.PredictRequest) (*models.PredictResponse, error)
	Domains() []models.DomainInfo
	Stats() models.ClassificationStats
}

// StatsProvider exposes aggregated classification metrics
type StatsProvider interface {
	Snapshot() models.ClassificationStats
}

type classificationService struct {
	engines   repository.EngineRepository
	decoder   storage.ImageDecoder
	publisher observer.Subject
	stats     StatsProvider
	seed      *uint64
}

// NewClassificationService creates the classification service. When seed is
// non-nil every request without its own seed uses it.
func NewClassificationService(
	engines repository.EngineRepository,
	decoder storage.ImageDecoder,
	publisher observer.Subject,
	stats StatsProvider,
	seed *uint64,
) ClassificationService {
	return &classificationService{
		engines:   engines,
		decoder:   decoder,
		publisher: publisher,
		stats:     stats,
		seed:      seed,
	}
}

func (s *classificationService) Classify(ctx context.Context, request models.PredictRequest) (*models.PredictResponse, error) {
	start := time.Now()

	if strings.TrimSpace(request.Image) == "" {
		return nil, apperrors.NewValidationError("No image provided", nil)
	}

	engine, err := s.resolve(request.Domain)
	if err != nil {
		return nil, err
	}
	domain := engine.Domain()

	s.publish(ctx, observer.ClassificationEvent{EventType: observer.ClassificationStarted, Domain: domain})

	response, err := s.classify(ctx, engine, request)
	if err != nil {
		s.publish(ctx, observer.ClassificationEvent{
			EventType:      observer.ClassificationFailed,
			Domain:         domain,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	s.publish(ctx, observer.ClassificationEvent{
		EventType:      observer.ClassificationCompleted,
		Domain:         domain,
		Category:       response.Category,
		Label:          response.Label,
		Confidence:     response.Confidence,
		ProcessingTime: time.Since(start),
		Success:        true,
	})
	return response, nil
}

func (s *classificationService) classify(ctx context.Context, engine *classifier.Engine, request models.PredictRequest) (*models.PredictResponse, error) {
	img, format, err := s.decoder.DecodeDataURI(ctx, request.Image)
	if err != nil {
		appErr := mapError(err)
		// Cancellation and decoder bugs are not payload problems
		if apperrors.IsType(appErr, apperrors.ErrorTypeDecodeFailed) {
			s.publish(ctx, observer.ClassificationEvent{
				EventType:    observer.ImageDecodeFailed,
				Domain:       engine.Domain(),
				ErrorMessage: err.Error(),
			})
		}
		return nil, appErr
	}

	bounds := img.Bounds()
	s.publish(ctx, observer.ClassificationEvent{
		EventType: observer.ImageDecoded,
		Domain:    engine.Domain(),
		Success:   true,
		Metadata: map[string]interface{}{
			"format": format,
			"width":  bounds.Dx(),
			"height": bounds.Dy(),
		},
	})

	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}

	result, err := engine.ClassifyImage(img, s.randomSource(request.Seed))
	if err != nil {
		return nil, mapError(err)
	}

	response := &models.PredictResponse{
		Label:      result.Label,
		Confidence: roundConfidence(result.Confidence),
		Type:       result.Category,
		Category:   result.Category,
		Domain:     result.Domain,
	}
	if request.Explain {
		response.Explain = explain(result, format, img)
	}

	logger.WithFields(logrus.Fields{
		"domain":       result.Domain,
		"category":     result.Category,
		"matched_rule": classifier.FormatMatch(result.Match),
		"samples":      result.Features.SampleCount,
	}).Debug("Image classified")

	return response, nil
}

// resolve picks the engine for a requested domain, suggesting a close
// match when the name is unknown.
func (s *classificationService) resolve(domain string) (*classifier.Engine, error) {
	if strings.TrimSpace(domain) == "" {
		return s.engines.Default(), nil
	}

	engine, err := s.engines.Get(domain)
	if err == nil {
		return engine, nil
	}

	names := s.engines.Names()
	appErr := apperrors.NewValidationError(fmt.Sprintf("unknown domain %q", domain), err)
	if suggestion := ruleset.Suggest(domain, names); suggestion != "" {
		return nil, appErr.WithDetails(fmt.Sprintf("did you mean %q?", suggestion))
	}
	return nil, appErr.WithDetails("available domains: " + strings.Join(names, ", "))
}

func (s *classificationService) randomSource(requestSeed *uint64) classifier.RandomSource {
	switch {
	case requestSeed != nil:
		return classifier.NewSeededSource(*requestSeed)
	case s.seed != nil:
		return classifier.NewSeededSource(*s.seed)
	default:
		return classifier.NewRequestSource()
	}
}

func (s *classificationService) Domains() []models.DomainInfo {
	defaultDomain := s.engines.Default().Domain()
	names := s.engines.Names()

	domains := make([]models.DomainInfo, 0, len(names))
	for _, name := range names {
		engine, err := s.engines.Get(name)
		if err != nil {
			continue
		}
		table := engine.Table()
		domains = append(domains, models.DomainInfo{
			Name:        table.Name,
			Version:     table.Version,
			Description: table.Description,
			Categories:  table.CategoryNames(),
			Default:     table.Name == defaultDomain,
		})
	}
	return domains
}

func (s *classificationService) Stats() models.ClassificationStats {
	if s.stats == nil {
		return models.ClassificationStats{}
	}
	return s.stats.Snapshot()
}

func (s *classificationService) publish(ctx context.Context, event observer.ClassificationEvent) {
	if s.publisher != nil {
		s.publisher.NotifyObservers(ctx, event)
	}
}

// mapError converts core sentinel errors into AppErrors
func mapError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, storage.ErrDecodeFailed):
		return apperrors.NewDecodeError("failed to decode image", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("classification timed out", err)
	case stderrors.Is(err, context.Canceled):
		return apperrors.NewTimeoutError("classification cancelled", err)
	case stderrors.Is(err, analyzer.ErrInvalidImage):
		return apperrors.NewInvalidImageError("image has no readable pixels", err)
	case stderrors.Is(err, analyzer.ErrAnalysisFailed), stderrors.Is(err, classifier.ErrInvalidFeatures):
		return apperrors.NewAnalysisError("failed to analyze image", err)
	default:
		return apperrors.NewInternalError("classification failed", err)
	}
}

func roundConfidence(c float64) float64 {
	return math.Round(c*1e4) / 1e4
}

func explain(result models.ClassificationResult, format string, img image.Image) *models.Explanation {
	fv := result.Features
	mean := colorful.Color{R: fv.MeanR / 255, G: fv.MeanG / 255, B: fv.MeanB / 255}.Clamped()
	h, sat, l := mean.Hsl()

	bounds := img.Bounds()
	return &models.Explanation{
		Features:     fv,
		Brightness:   fv.Brightness(),
		MeanColorHex: mean.Hex(),
		MeanColorHSL: [3]float64{h, sat, l},
		MatchedRule:  classifier.FormatMatch(result.Match),
		ImageFormat:  format,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
	}
}
