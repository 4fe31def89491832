package rng

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var _ RNG = &CategoricalRNG{}

// CategoricalRNG returns the index of a category drawn with probability proportional to its weight
type CategoricalRNG struct {
	d distuv.Categorical
}

func (r *CategoricalRNG) Rand() float64 {
	return r.d.Rand()
}

// Index returns the next category as an int
func (r *CategoricalRNG) Index() int {
	return int(r.d.Rand())
}

// NewCategoricalRNG returns a categorical generator over len(weights) categories.  Weights must be
// non-negative with a positive sum.
func NewCategoricalRNG(weights []float64, src rand.Source) (*CategoricalRNG, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("categorical generator needs at least one weight")
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("categorical weight %f is negative", w)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("categorical weights must sum to a positive value")
	}
	return &CategoricalRNG{
		d: distuv.NewCategorical(weights, src),
	}, nil
}
