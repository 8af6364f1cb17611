package repository

import (
	"context"

	"github.com/anime-shed/frame-classifier/internal/classifier"
	"github.com/anime-shed/frame-classifier/pkg/models"
)

// EngineRepository provides read-only access to the classification engines,
// one per rule table. It is safe for concurrent use.
type EngineRepository interface {
	// Get returns the engine for a domain name
	Get(name string) (*classifier.Engine, error)

	// Default returns the engine used when a request names no domain
	Default() *classifier.Engine

	// Names lists the registered domains in sorted order
	Names() []string
}

// TableLoader fetches and validates an external rule table
type TableLoader interface {
	LoadTable(ctx context.Context) (*models.RuleTable, error)
}
