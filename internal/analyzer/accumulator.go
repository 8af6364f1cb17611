package analyzer

import "github.com/anime-shed/frame-classifier/pkg/models"

// channelStats is a Welford running mean/variance for one channel.
type channelStats struct {
	n    int
	mean float64
	m2   float64
}

func (s *channelStats) add(v float64) {
	s.n++
	delta := v - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (v - s.mean)
}

// variance returns the population variance.
func (s *channelStats) variance() float64 {
	if s.n == 0 {
		return 0
	}
	return s.m2 / float64(s.n)
}

// pixelAccumulator aggregates RGB samples without keeping them.
type pixelAccumulator struct {
	count    int
	channels [3]channelStats
}

func (a *pixelAccumulator) add(r, g, b float64) {
	a.count++
	a.channels[0].add(r)
	a.channels[1].add(g)
	a.channels[2].add(b)
}

func (a *pixelAccumulator) vector() models.FeatureVector {
	variance := (a.channels[0].variance() + a.channels[1].variance() + a.channels[2].variance()) / 3
	return models.FeatureVector{
		MeanR:       a.channels[0].mean,
		MeanG:       a.channels[1].mean,
		MeanB:       a.channels[2].mean,
		Variance:    variance,
		SampleCount: a.count,
	}
}
