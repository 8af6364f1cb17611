package classifier

import "math/rand/v2"

// RandomSource supplies label choice and jitter. *rand.Rand satisfies it.
// A RandomSource is used by one classification at a time.
type RandomSource interface {
	IntN(n int) int
	Float64() float64
}

// NewSeededSource returns a deterministic PCG generator for seed.
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRequestSource returns a freshly seeded generator for one request.
// Seeds come from the process-wide generator, which is safe for concurrent use.
func NewRequestSource() *rand.Rand {
	return NewSeededSource(rand.Uint64())
}
