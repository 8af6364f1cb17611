package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/frame-classifier/internal/config"
	"github.com/anime-shed/frame-classifier/internal/factory"
	"github.com/anime-shed/frame-classifier/internal/logger"
	"github.com/anime-shed/frame-classifier/internal/observer"
	"github.com/anime-shed/frame-classifier/internal/repository"
	"github.com/anime-shed/frame-classifier/internal/ruleset"
	"github.com/anime-shed/frame-classifier/internal/service"
	"github.com/anime-shed/frame-classifier/internal/storage"
	"github.com/anime-shed/frame-classifier/internal/transport"
	"github.com/anime-shed/frame-classifier/pkg/models"
)

// Container holds all application dependencies
type Container struct {
	config                *config.Config
	engineRepository      repository.EngineRepository
	metrics               *observer.MetricsObserver
	classificationService service.ClassificationService
	handler               http.Handler
}

// NewContainer builds the dependency graph. External rule tables are loaded
// here, once, bounded by cfg.RuleTableTimeout.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	extractor, err := components.ExtractorFactory.CreateExtractor(cfg.GridDensity)
	if err != nil {
		return nil, err
	}

	tables, err := loadTables(ctx, cfg, components.SourceFactory)
	if err != nil {
		return nil, err
	}

	engineRepository, err := repository.NewEngineRepository(extractor, tables, cfg.DefaultDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule engines: %w", err)
	}

	metrics := observer.NewMetricsObserver(observer.DefaultConfidenceWindow)
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.SubscribeSync(metrics)

	classificationService := service.NewClassificationService(
		engineRepository,
		storage.NewDataURIDecoder(cfg.MaxImagePixels),
		publisher,
		metrics,
		cfg.RandomSeed,
	)
	handler := transport.NewHandler(classificationService, cfg)

	logger.WithFields(logrus.Fields{
		"domains":        engineRepository.Names(),
		"default_domain": engineRepository.Default().Domain(),
		"grid_density":   cfg.GridDensity,
	}).Info("Rule engines ready")

	return &Container{
		config:                cfg,
		engineRepository:      engineRepository,
		metrics:               metrics,
		classificationService: classificationService,
		handler:               handler,
	}, nil
}

func loadTables(ctx context.Context, cfg *config.Config, sources factory.SourceFactory) ([]*models.RuleTable, error) {
	tables, err := ruleset.Builtins()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in rule tables: %w", err)
	}

	source, err := sources.CreateSource(factory.SourceType(cfg.RuleTableSource), cfg.RuleTableLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to configure rule table source: %w", err)
	}
	if source == nil {
		return tables, nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, cfg.RuleTableTimeout)
	defer cancel()

	table, err := repository.NewTableLoader(source).LoadTable(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to load external rule table: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"source":  source.Describe(),
		"table":   table.Name,
		"version": table.Version,
	}).Info("External rule table loaded")

	// Appended last so it replaces a built-in with the same name
	return append(tables, table), nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the classification service
func (c *Container) Service() service.ClassificationService {
	return c.classificationService
}

// Metrics returns the metrics observer backing GET /stats
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}
