// Package rng provides seeded random number generators for the signal generator.  Every generator
// draws from a caller supplied source so that a single seed controls a whole generation run.
package rng

import "math/rand/v2"

// RNG is a random number generator
type RNG interface {
	Rand() float64
}

// NewSource returns the deterministic source for seed.  Two sources created from the same seed
// produce the same sequence.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed)
}

// Draw returns n consecutive values from r
func Draw(r RNG, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Rand()
	}
	return out
}
