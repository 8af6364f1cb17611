package classifier

import (
	"errors"
	"fmt"

	"github.com/anime-shed/frame-classifier/pkg/models"
	"github.com/anime-shed/frame-classifier/pkg/validation"
)

// ErrInvalidFeatures is returned when Classify receives a vector with no samples.
var ErrInvalidFeatures = errors.New("feature vector has no samples")

// Classifier evaluates one rule table. It is immutable and safe for concurrent use.
type Classifier struct {
	table *models.RuleTable
}

// New validates table and returns a classifier bound to it.
func New(table *models.RuleTable) (*Classifier, error) {
	if table == nil {
		return nil, errors.New("rule table is nil")
	}
	if issues := validation.NewRuleTableValidator().Validate(table); len(issues) > 0 {
		return nil, fmt.Errorf("rule table %q is invalid: %w", table.Name, validation.IssuesError(issues))
	}
	return &Classifier{table: table}, nil
}

// Table returns the rule table backing the classifier.
func (c *Classifier) Table() *models.RuleTable {
	return c.table
}

// Match selects a category: primary rules in order, then fallback rules, then the default.
func (c *Classifier) Match(fv models.FeatureVector) (string, models.RuleMatch) {
	for i, rule := range c.table.Rules {
		if guardHolds(rule.When, fv) {
			return rule.Category, models.RuleMatch{Stage: models.StagePrimary, Index: i}
		}
	}
	for i, rule := range c.table.Fallback.Rules {
		if guardHolds(rule.When, fv) {
			return rule.Category, models.RuleMatch{Stage: models.StageFallback, Index: i}
		}
	}
	return c.table.Fallback.Default, models.RuleMatch{Stage: models.StageDefault}
}

// Classify maps a valid feature vector to a label, category and confidence.
// rng drives label choice and jitter; pass a seeded source for reproducible output.
func (c *Classifier) Classify(fv models.FeatureVector, rng RandomSource) (models.ClassificationResult, error) {
	if !fv.Valid() {
		return models.ClassificationResult{}, ErrInvalidFeatures
	}

	name, match := c.Match(fv)
	category := c.table.Category(name)
	if category == nil {
		// unreachable for validated tables
		return models.ClassificationResult{}, fmt.Errorf("rule table %q has no category %q", c.table.Name, name)
	}

	label := category.Labels[rng.IntN(len(category.Labels))]
	confidence := score(c.table.Confidence, category, fv, rng)

	return models.ClassificationResult{
		Label:      label,
		Confidence: confidence,
		Category:   category.Name,
		Domain:     c.table.Name,
		Features:   fv,
		Match:      match,
	}, nil
}

// FormatMatch renders a match as "primary[2]", "fallback[0]" or "default".
func FormatMatch(m models.RuleMatch) string {
	if m.Stage == models.StageDefault {
		return string(m.Stage)
	}
	return fmt.Sprintf("%s[%d]", m.Stage, m.Index)
}
