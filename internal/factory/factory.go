package factory

import (
	"fmt"

	"github.com/anime-shed/frame-classifier/internal/analyzer"
	"github.com/anime-shed/frame-classifier/internal/config"
	"github.com/anime-shed/frame-classifier/internal/storage"
	"github.com/anime-shed/frame-classifier/pkg/validation"
)

// SourceType represents different rule table backends
type SourceType string

const (
	// BuiltinSource uses only the embedded tables
	BuiltinSource SourceType = config.SourceBuiltin
	// FileSource reads a table from the local file system
	FileSource SourceType = config.SourceFile
	// HTTPSource downloads a table over HTTP(S)
	HTTPSource SourceType = config.SourceHTTP
	// AzureSource reads a table from Azure Blob Storage
	AzureSource SourceType = config.SourceAzure
)

// ExtractorFactory creates feature extractors
type ExtractorFactory interface {
	CreateExtractor(gridDensity int) (analyzer.FeatureExtractor, error)
}

// SourceFactory creates rule table sources
type SourceFactory interface {
	// CreateSource returns nil for BuiltinSource
	CreateSource(sourceType SourceType, location string) (storage.TableSource, error)
}

// extractorFactory implements ExtractorFactory
type extractorFactory struct{}

// NewExtractorFactory creates a new extractor factory
func NewExtractorFactory() ExtractorFactory {
	return &extractorFactory{}
}

// CreateExtractor creates a grid extractor sampling gridDensity points per axis
func (f *extractorFactory) CreateExtractor(gridDensity int) (analyzer.FeatureExtractor, error) {
	if gridDensity < 1 {
		return nil, fmt.Errorf("grid density must be >= 1 (got %d)", gridDensity)
	}
	return analyzer.NewFeatureExtractor(gridDensity), nil
}

// sourceFactory implements SourceFactory
type sourceFactory struct {
	urlValidator *validation.URLValidator
	blobAccount  string
	blobKey      string
}

// NewSourceFactory creates a source factory; the Azure credentials are only
// needed for AzureSource. A non-empty allowedHosts restricts remote locations
// to those hosts.
func NewSourceFactory(azureAccount, azureKey string, allowedHosts []string) SourceFactory {
	urlValidator := validation.NewURLValidator()
	if len(allowedHosts) > 0 {
		urlValidator = validation.NewURLValidatorWithOptions([]string{"http", "https"}, allowedHosts)
	}
	return &sourceFactory{
		urlValidator: urlValidator,
		blobAccount:  azureAccount,
		blobKey:      azureKey,
	}
}

// CreateSource creates a table source based on the specified type
func (f *sourceFactory) CreateSource(sourceType SourceType, location string) (storage.TableSource, error) {
	switch sourceType {
	case BuiltinSource:
		return nil, nil
	case FileSource:
		if location == "" {
			return nil, fmt.Errorf("file source requires a path")
		}
		return storage.NewFileTableSource(location), nil
	case HTTPSource:
		if err := f.urlValidator.ValidateTableURL(location); err != nil {
			return nil, err
		}
		return storage.NewHTTPTableSource(location), nil
	case AzureSource:
		if err := f.urlValidator.ValidateTableURL(location); err != nil {
			return nil, err
		}
		source, err := storage.NewAzureTableSource(f.blobAccount, f.blobKey, location)
		if err != nil {
			return nil, err
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported rule table source: %s", sourceType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ExtractorFactory ExtractorFactory
	SourceFactory    SourceFactory
}

// NewComponentFactory creates a component factory from configuration
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		ExtractorFactory: NewExtractorFactory(),
		SourceFactory:    NewSourceFactory(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.RuleTableAllowedHosts),
	}
}
