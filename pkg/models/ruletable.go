package models

// Feature names a scalar derived from a FeatureVector.
type Feature string

const (
	FeatureMeanR      Feature = "mean_r"
	FeatureMeanG      Feature = "mean_g"
	FeatureMeanB      Feature = "mean_b"
	FeatureVariance   Feature = "variance"
	FeatureBrightness Feature = "brightness"
)

// Features lists every feature a condition may reference.
var Features = []Feature{FeatureMeanR, FeatureMeanG, FeatureMeanB, FeatureVariance, FeatureBrightness}

// Operator is a numeric comparison.
type Operator string

const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// Condition compares Feature against Value, or against Ref+Value when Ref is set.
type Condition struct {
	Feature Feature  `yaml:"feature" json:"feature"`
	Op      Operator `yaml:"op" json:"op"`
	Ref     Feature  `yaml:"ref,omitempty" json:"ref,omitempty"`
	Value   float64  `yaml:"value" json:"value"`
}

// Clause holds when all of its conditions hold.
type Clause []Condition

// Guard holds when any of its clauses holds.
type Guard []Clause

// Rule maps a guard to a category.
type Rule struct {
	Category string `yaml:"category" json:"category"`
	When     Guard  `yaml:"when" json:"when"`
}

// BonusRule adds Value to the confidence when the guard holds.
type BonusRule struct {
	Value float64 `yaml:"value" json:"value"`
	When  Guard   `yaml:"when" json:"when"`
}

// Category is a semantic bucket with its own label pool.
type Category struct {
	Name   string    `yaml:"name" json:"name"`
	Labels []string  `yaml:"labels" json:"labels"`
	Bonus  BonusRule `yaml:"bonus" json:"bonus"`
}

// ConfidencePolicy parameterizes confidence scoring.
type ConfidencePolicy struct {
	Base            float64 `yaml:"base" json:"base"`
	SampleBonus     float64 `yaml:"sample_bonus" json:"sample_bonus"`
	SampleThreshold int     `yaml:"sample_threshold" json:"sample_threshold"`
	JitterMin       float64 `yaml:"jitter_min" json:"jitter_min"`
	JitterMax       float64 `yaml:"jitter_max" json:"jitter_max"`
	Max             float64 `yaml:"max" json:"max"`
}

// Fallback is evaluated when no primary rule matches.
type Fallback struct {
	Rules   []Rule `yaml:"rules" json:"rules"`
	Default string `yaml:"default" json:"default"`
}

// RuleTable is the complete configuration for one label domain.
type RuleTable struct {
	Name        string           `yaml:"name" json:"name"`
	Version     string           `yaml:"version" json:"version"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Confidence  ConfidencePolicy `yaml:"confidence" json:"confidence"`
	Categories  []Category       `yaml:"categories" json:"categories"`
	Rules       []Rule           `yaml:"rules" json:"rules"`
	Fallback    Fallback         `yaml:"fallback" json:"fallback"`
}

// Category returns the named category, or nil.
func (t *RuleTable) Category(name string) *Category {
	for i := range t.Categories {
		if t.Categories[i].Name == name {
			return &t.Categories[i]
		}
	}
	return nil
}

// CategoryNames returns category names in table order.
func (t *RuleTable) CategoryNames() []string {
	names := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		names = append(names, c.Name)
	}
	return names
}
