package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anime-shed/frame-classifier/internal/analyzer"
	"github.com/anime-shed/frame-classifier/internal/classifier"
	"github.com/anime-shed/frame-classifier/internal/ruleset"
	"github.com/anime-shed/frame-classifier/internal/storage"
	"github.com/anime-shed/frame-classifier/pkg/models"
)

// memoryEngineRepository is populated once and never mutated afterwards.
type memoryEngineRepository struct {
	engines       map[string]*classifier.Engine
	names         []string
	defaultDomain string
}

// NewEngineRepository builds an engine per table. A later table with the
// same name replaces an earlier one, so external tables can override the
// built-ins. defaultDomain must name one of the tables.
func NewEngineRepository(extractor analyzer.FeatureExtractor, tables []*models.RuleTable, defaultDomain string) (EngineRepository, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	engines := make(map[string]*classifier.Engine, len(tables))
	for _, table := range tables {
		c, err := classifier.New(table)
		if err != nil {
			return nil, err
		}
		engines[normalize(table.Name)] = classifier.NewEngine(extractor, c)
	}

	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)

	defaultDomain = normalize(defaultDomain)
	if _, ok := engines[defaultDomain]; !ok {
		return nil, fmt.Errorf("default domain %q: %w", defaultDomain, ErrTableNotFound)
	}

	return &memoryEngineRepository{engines: engines, names: names, defaultDomain: defaultDomain}, nil
}

func (r *memoryEngineRepository) Get(name string) (*classifier.Engine, error) {
	if e, ok := r.engines[normalize(name)]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
}

func (r *memoryEngineRepository) Default() *classifier.Engine {
	return r.engines[r.defaultDomain]
}

func (r *memoryEngineRepository) Names() []string {
	return append([]string(nil), r.names...)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// sourceTableLoader reads a rule table document from a storage source
type sourceTableLoader struct {
	source storage.TableSource
}

// NewTableLoader creates a loader that parses whatever source yields
func NewTableLoader(source storage.TableSource) TableLoader {
	return &sourceTableLoader{source: source}
}

func (l *sourceTableLoader) LoadTable(ctx context.Context) (*models.RuleTable, error) {
	data, err := l.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.source.Describe(), err)
	}
	table, err := ruleset.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.source.Describe(), err)
	}
	return table, nil
}
