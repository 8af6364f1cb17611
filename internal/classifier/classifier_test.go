package classifier

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/anime-shed/frame-classifier/internal/ruleset"
	"github.com/anime-shed/frame-classifier/pkg/models"
)

// fixedSource pins label choice and jitter.
type fixedSource struct {
	index    int
	fraction float64
}

func (f fixedSource) IntN(n int) int   { return f.index % n }
func (f fixedSource) Float64() float64 { return f.fraction }

func mustClassifier(t *testing.T, name string) *Classifier {
	t.Helper()
	table, err := ruleset.Builtin(name)
	if err != nil {
		t.Fatalf("Failed to load %s table: %v", name, err)
	}
	c, err := New(table)
	if err != nil {
		t.Fatalf("Failed to create classifier: %v", err)
	}
	return c
}

func uniform(v float64) models.FeatureVector {
	return models.FeatureVector{MeanR: v, MeanG: v, MeanB: v, Variance: 0, SampleCount: 100}
}

func TestClassify_DarkImage(t *testing.T) {
	tests := []struct {
		table    string
		category string
	}{
		{ruleset.Biological, "insects"},
		{ruleset.Artifact, "bronze"},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			c := mustClassifier(t, tt.table)
			for seed := uint64(0); seed < 20; seed++ {
				result, err := c.Classify(uniform(30), NewSeededSource(seed))
				if err != nil {
					t.Fatalf("Classify failed: %v", err)
				}
				if result.Category != tt.category {
					t.Fatalf("Category = %s, want %s", result.Category, tt.category)
				}
				if result.Confidence < 0.70 {
					t.Errorf("Confidence = %f, want >= 0.70", result.Confidence)
				}
			}
		})
	}
}

func TestClassify_NearWhiteImage(t *testing.T) {
	result, err := mustClassifier(t, ruleset.Artifact).Classify(uniform(220), NewSeededSource(7))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Category != "sculpture" {
		t.Errorf("Category = %s, want sculpture", result.Category)
	}

	result, err = mustClassifier(t, ruleset.Biological).Classify(uniform(220), NewSeededSource(7))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Category != "molluscs" {
		t.Errorf("Category = %s, want molluscs", result.Category)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	tests := []struct {
		name       string
		table      string
		fv         models.FeatureVector
		first      string
		second     string
		firstIndex int
	}{
		{
			name:   "dark blue satisfies insects and fish",
			table:  ruleset.Biological,
			fv:     models.FeatureVector{MeanR: 40, MeanG: 50, MeanB: 85, Variance: 0, SampleCount: 100},
			first:  "insects",
			second: "fish",
		},
		{
			name:       "orange satisfies copper and pottery",
			table:      ruleset.Artifact,
			fv:         models.FeatureVector{MeanR: 180, MeanG: 120, MeanB: 60, Variance: 100, SampleCount: 100},
			first:      "copper_ware",
			second:     "pottery",
			firstIndex: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ruleset.Builtin(tt.table)
			if err != nil {
				t.Fatalf("Builtin failed: %v", err)
			}
			c, err := New(table)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			got, match := c.Match(tt.fv)
			if got != tt.first {
				t.Fatalf("Match = %s, want %s", got, tt.first)
			}
			if match.Stage != models.StagePrimary || match.Index != tt.firstIndex {
				t.Errorf("Match rule = %s, want primary[%d]", FormatMatch(match), tt.firstIndex)
			}

			// Both guards hold: moving the second rule ahead must flip the outcome.
			var secondIdx int
			for i, r := range table.Rules {
				if r.Category == tt.second {
					secondIdx = i
				}
			}
			if !guardHolds(table.Rules[secondIdx].When, tt.fv) {
				t.Fatalf("Expected %s guard to hold as well", tt.second)
			}
			reordered := *table
			reordered.Rules = append([]models.Rule{table.Rules[secondIdx]}, table.Rules...)
			rc, err := New(&reordered)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if got, _ := rc.Match(tt.fv); got != tt.second {
				t.Errorf("Reordered match = %s, want %s", got, tt.second)
			}
		})
	}
}

func TestClassify_FallbackAndDefault(t *testing.T) {
	c := mustClassifier(t, ruleset.Biological)

	tests := []struct {
		name     string
		fv       models.FeatureVector
		category string
		rule     string
	}{
		{"bright pink falls back to molluscs", models.FeatureVector{MeanR: 250, MeanG: 170, MeanB: 200, Variance: 100, SampleCount: 100}, "molluscs", "fallback[0]"},
		{"noisy mauve falls back to birds", models.FeatureVector{MeanR: 150, MeanG: 100, MeanB: 140, Variance: 1600, SampleCount: 100}, "birds", "fallback[1]"},
		{"flat mauve hits the default", models.FeatureVector{MeanR: 150, MeanG: 100, MeanB: 140, Variance: 100, SampleCount: 100}, "mammals", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := c.Classify(tt.fv, fixedSource{})
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if result.Category != tt.category {
				t.Errorf("Category = %s, want %s", result.Category, tt.category)
			}
			if got := FormatMatch(result.Match); got != tt.rule {
				t.Errorf("Matched rule = %s, want %s", got, tt.rule)
			}
		})
	}
}

func TestClassify_Totality(t *testing.T) {
	for _, name := range ruleset.BuiltinNames() {
		c := mustClassifier(t, name)
		policy := c.Table().Confidence
		rng := NewSeededSource(99)

		for r := 0.0; r <= 255; r += 31.875 {
			for g := 0.0; g <= 255; g += 31.875 {
				for b := 0.0; b <= 255; b += 31.875 {
					for _, variance := range []float64{0, 150, 500, 1000, 1600, 5000} {
						for _, count := range []int{1, 41, 144} {
							fv := models.FeatureVector{MeanR: r, MeanG: g, MeanB: b, Variance: variance, SampleCount: count}
							result, err := c.Classify(fv, rng)
							if err != nil {
								t.Fatalf("%s: Classify(%+v) failed: %v", name, fv, err)
							}
							category := c.Table().Category(result.Category)
							if category == nil {
								t.Fatalf("%s: unknown category %q", name, result.Category)
							}
							if !contains(category.Labels, result.Label) {
								t.Fatalf("%s: label %q not in %s pool", name, result.Label, result.Category)
							}
							if result.Confidence > policy.Max || result.Confidence < policy.Base+policy.JitterMin {
								t.Fatalf("%s: confidence %f outside [%f, %f]", name, result.Confidence, policy.Base+policy.JitterMin, policy.Max)
							}
						}
					}
				}
			}
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := mustClassifier(t, ruleset.Biological)
	fv := models.FeatureVector{MeanR: 120, MeanG: 110, MeanB: 60, Variance: 700, SampleCount: 100}

	first, err := c.Classify(fv, NewSeededSource(42))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := c.Classify(fv, NewSeededSource(42))
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if again.Label != first.Label || again.Confidence != first.Confidence || again.Category != first.Category {
			t.Fatalf("Run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestClassify_ConcurrentCallsMatchSequential(t *testing.T) {
	c := mustClassifier(t, ruleset.Artifact)
	fv := models.FeatureVector{MeanR: 140, MeanG: 100, MeanB: 70, Variance: 300, SampleCount: 100}

	want := make([]models.ClassificationResult, 32)
	for i := range want {
		want[i], _ = c.Classify(fv, NewSeededSource(uint64(i)))
	}

	got := make([]models.ClassificationResult, len(want))
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = c.Classify(fv, NewSeededSource(uint64(i)))
		}(i)
	}
	wg.Wait()

	for i := range want {
		if got[i].Label != want[i].Label || got[i].Confidence != want[i].Confidence {
			t.Errorf("seed %d: concurrent %+v != sequential %+v", i, got[i], want[i])
		}
	}
}

func TestClassify_ConfidencePolicy(t *testing.T) {
	c := mustClassifier(t, ruleset.Biological)
	dark := uniform(30) // insects, brightness bonus applies

	tests := []struct {
		name     string
		fv       models.FeatureVector
		fraction float64
		want     float64
	}{
		{"all bonuses, lowest jitter", dark, 0, 0.72 + 0.08 + 0.12 - 0.03},
		{"all bonuses, highest jitter is capped", dark, 0.999, 0.94},
		{"no sample bonus", models.FeatureVector{MeanR: 30, MeanG: 30, MeanB: 30, SampleCount: 40}, 0, 0.72 + 0.12 - 0.03},
		{"no category bonus", models.FeatureVector{MeanR: 80, MeanG: 80, MeanB: 80, SampleCount: 100}, 0.5, 0.72 + 0.08 + 0.075},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := c.Classify(tt.fv, fixedSource{fraction: tt.fraction})
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if result.Category != "insects" {
				t.Fatalf("Category = %s, want insects", result.Category)
			}
			if math.Abs(result.Confidence-tt.want) > 1e-9 {
				t.Errorf("Confidence = %f, want %f", result.Confidence, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want float64
	}{
		{"inside", 0.5, 0.5},
		{"below", -0.2, 0},
		{"above", 1.3, 0.94},
		{"NaN", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0.94},
		{"negative infinity", math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clamp(tt.v, 0, 0.94); got != tt.want {
				t.Errorf("clamp(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestClassify_LabelSelection(t *testing.T) {
	c := mustClassifier(t, ruleset.Artifact)
	pool := c.Table().Category("sculpture").Labels

	for i := range pool {
		result, err := c.Classify(uniform(220), fixedSource{index: i})
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if result.Label != pool[i] {
			t.Errorf("index %d: label = %s, want %s", i, result.Label, pool[i])
		}
	}
}

func TestClassify_InvalidFeatures(t *testing.T) {
	c := mustClassifier(t, ruleset.Biological)
	_, err := c.Classify(models.FeatureVector{MeanR: 30, MeanG: 30, MeanB: 30}, fixedSource{})
	if !errors.Is(err, ErrInvalidFeatures) {
		t.Errorf("Expected ErrInvalidFeatures, got %v", err)
	}
}

func TestNew_RejectsInvalidTable(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("Expected error for nil table")
	}

	table, _ := ruleset.Builtin(ruleset.Biological)
	table.Fallback.Default = "dragons"
	if _, err := New(table); err == nil {
		t.Error("Expected error for unknown default category")
	}
}

func TestFormatMatch(t *testing.T) {
	if got := FormatMatch(models.RuleMatch{Stage: models.StagePrimary, Index: 3}); got != "primary[3]" {
		t.Errorf("FormatMatch = %s", got)
	}
	if got := FormatMatch(models.RuleMatch{Stage: models.StageDefault}); got != "default" {
		t.Errorf("FormatMatch = %s", got)
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
