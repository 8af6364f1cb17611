package classifier

import (
	"math"

	"github.com/anime-shed/frame-classifier/pkg/models"
)

// score computes base + bonuses + jitter, clamped to [0, policy.Max].
func score(policy models.ConfidencePolicy, category *models.Category, fv models.FeatureVector, rng RandomSource) float64 {
	confidence := policy.Base

	if fv.SampleCount > policy.SampleThreshold {
		confidence += policy.SampleBonus
	}
	if guardHolds(category.Bonus.When, fv) {
		confidence += category.Bonus.Value
	}

	confidence += policy.JitterMin + rng.Float64()*(policy.JitterMax-policy.JitterMin)

	return clamp(confidence, 0, policy.Max)
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
