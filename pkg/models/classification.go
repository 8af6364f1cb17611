package models

// FeatureVector holds the summary statistics sampled from one image.
// Channel means are in [0,255]; Variance is the population variance of each
// channel averaged over the three channels.
type FeatureVector struct {
	MeanR       float64 `json:"mean_r"`
	MeanG       float64 `json:"mean_g"`
	MeanB       float64 `json:"mean_b"`
	Variance    float64 `json:"variance"`
	SampleCount int     `json:"sample_count"`
}

// Brightness returns the mean of the three channel means.
func (fv FeatureVector) Brightness() float64 {
	return (fv.MeanR + fv.MeanG + fv.MeanB) / 3
}

// Valid reports whether the vector was built from at least one sample.
func (fv FeatureVector) Valid() bool {
	return fv.SampleCount > 0
}

// Value returns the named feature. Unknown features report ok=false.
func (fv FeatureVector) Value(f Feature) (float64, bool) {
	switch f {
	case FeatureMeanR:
		return fv.MeanR, true
	case FeatureMeanG:
		return fv.MeanG, true
	case FeatureMeanB:
		return fv.MeanB, true
	case FeatureVariance:
		return fv.Variance, true
	case FeatureBrightness:
		return fv.Brightness(), true
	}
	return 0, false
}

// MatchStage identifies which part of the rule table selected a category.
type MatchStage string

const (
	StagePrimary  MatchStage = "primary"
	StageFallback MatchStage = "fallback"
	StageDefault  MatchStage = "default"
)

// RuleMatch records the rule that fired.
type RuleMatch struct {
	Stage MatchStage `json:"stage"`
	Index int        `json:"index"`
}

// ClassificationResult is the outcome of classifying one image.
type ClassificationResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`

	Domain   string        `json:"domain,omitempty"`
	Features FeatureVector `json:"-"`
	Match    RuleMatch     `json:"-"`
}
