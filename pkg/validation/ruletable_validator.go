package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/anime-shed/frame-classifier/pkg/models"
)

// RuleTableIssue represents a rule table validation problem
type RuleTableIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i RuleTableIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// IssuesError joins issues into a single error. It returns nil for no issues.
func IssuesError(issues []RuleTableIssue) error {
	if len(issues) == 0 {
		return nil
	}
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, issue.String())
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

// RuleTableValidator checks that a rule table is total and well formed
type RuleTableValidator struct {
	features  map[models.Feature]bool
	operators map[models.Operator]bool
}

// NewRuleTableValidator creates a validator for the built-in feature and operator sets
func NewRuleTableValidator() *RuleTableValidator {
	features := make(map[models.Feature]bool, len(models.Features))
	for _, f := range models.Features {
		features[f] = true
	}
	return &RuleTableValidator{
		features: features,
		operators: map[models.Operator]bool{
			models.OpLess:         true,
			models.OpLessEqual:    true,
			models.OpGreater:      true,
			models.OpGreaterEqual: true,
		},
	}
}

// Validate returns every problem found in table
func (v *RuleTableValidator) Validate(table *models.RuleTable) []RuleTableIssue {
	var issues []RuleTableIssue
	add := func(field, format string, args ...interface{}) {
		issues = append(issues, RuleTableIssue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(table.Name) == "" {
		add("name", "must not be empty")
	}

	issues = append(issues, v.validatePolicy(table.Confidence)...)

	if len(table.Categories) == 0 {
		add("categories", "at least one category is required")
	}
	known := make(map[string]bool, len(table.Categories))
	for i, c := range table.Categories {
		field := fmt.Sprintf("categories[%d]", i)
		if strings.TrimSpace(c.Name) == "" {
			add(field+".name", "must not be empty")
		} else if known[c.Name] {
			add(field+".name", "duplicate category %q", c.Name)
		}
		known[c.Name] = true

		if len(c.Labels) == 0 {
			add(field+".labels", "label pool of %q is empty", c.Name)
		}
		for j, label := range c.Labels {
			if strings.TrimSpace(label) == "" {
				add(fmt.Sprintf("%s.labels[%d]", field, j), "must not be empty")
			}
		}
		if !finite(c.Bonus.Value) || c.Bonus.Value < 0 {
			add(field+".bonus.value", "must be a finite value >= 0 (got %g)", c.Bonus.Value)
		}
		issues = append(issues, v.validateGuard(field+".bonus.when", c.Bonus.When, true)...)
	}

	for i, r := range table.Rules {
		issues = append(issues, v.validateRule(fmt.Sprintf("rules[%d]", i), r, known)...)
	}
	for i, r := range table.Fallback.Rules {
		issues = append(issues, v.validateRule(fmt.Sprintf("fallback.rules[%d]", i), r, known)...)
	}

	switch {
	case table.Fallback.Default == "":
		add("fallback.default", "a catch-all category is required")
	case !known[table.Fallback.Default]:
		add("fallback.default", "unknown category %q", table.Fallback.Default)
	}

	return issues
}

func (v *RuleTableValidator) validatePolicy(p models.ConfidencePolicy) []RuleTableIssue {
	var issues []RuleTableIssue
	add := func(field, format string, args ...interface{}) {
		issues = append(issues, RuleTableIssue{Field: "confidence." + field, Message: fmt.Sprintf(format, args...)})
	}

	// Comparisons with NaN are always false, so non-finite values are
	// rejected before any range check.
	values := []struct {
		field string
		value float64
	}{
		{"base", p.Base},
		{"max", p.Max},
		{"sample_bonus", p.SampleBonus},
		{"jitter_min", p.JitterMin},
		{"jitter_max", p.JitterMax},
	}
	for _, fv := range values {
		if !finite(fv.value) {
			add(fv.field, "must be finite (got %g)", fv.value)
		}
	}
	if len(issues) > 0 {
		return issues
	}

	if p.Base < 0 || p.Base > p.Max {
		add("base", "must be in [0, max] (got %g)", p.Base)
	}
	if p.Max <= 0 || p.Max > 1 {
		add("max", "must be in (0, 1] (got %g)", p.Max)
	}
	if p.SampleBonus < 0 {
		add("sample_bonus", "must be >= 0 (got %g)", p.SampleBonus)
	}
	if p.SampleThreshold < 0 {
		add("sample_threshold", "must be >= 0 (got %d)", p.SampleThreshold)
	}
	if p.JitterMin > p.JitterMax {
		add("jitter_min", "must be <= jitter_max (got %g > %g)", p.JitterMin, p.JitterMax)
	}
	return issues
}

func (v *RuleTableValidator) validateRule(field string, r models.Rule, known map[string]bool) []RuleTableIssue {
	var issues []RuleTableIssue
	if !known[r.Category] {
		issues = append(issues, RuleTableIssue{field + ".category", fmt.Sprintf("unknown category %q", r.Category)})
	}
	return append(issues, v.validateGuard(field+".when", r.When, false)...)
}

func (v *RuleTableValidator) validateGuard(field string, g models.Guard, optional bool) []RuleTableIssue {
	var issues []RuleTableIssue
	if len(g) == 0 && !optional {
		issues = append(issues, RuleTableIssue{field, "at least one clause is required"})
	}
	for i, clause := range g {
		clauseField := fmt.Sprintf("%s[%d]", field, i)
		if len(clause) == 0 {
			issues = append(issues, RuleTableIssue{clauseField, "clause has no conditions"})
		}
		for j, c := range clause {
			condField := fmt.Sprintf("%s[%d]", clauseField, j)
			if !v.features[c.Feature] {
				issues = append(issues, RuleTableIssue{condField + ".feature", fmt.Sprintf("unknown feature %q", c.Feature)})
			}
			if c.Ref != "" && !v.features[c.Ref] {
				issues = append(issues, RuleTableIssue{condField + ".ref", fmt.Sprintf("unknown feature %q", c.Ref)})
			}
			if !v.operators[c.Op] {
				issues = append(issues, RuleTableIssue{condField + ".op", fmt.Sprintf("unknown operator %q", c.Op)})
			}
			if !finite(c.Value) {
				issues = append(issues, RuleTableIssue{condField + ".value", fmt.Sprintf("must be finite (got %g)", c.Value)})
			}
		}
	}
	return issues
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
