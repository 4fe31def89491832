package rng

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var _ RNG = &NormalRNG{}

// NormalRNG generates normally distributed numbers
type NormalRNG struct {
	d distuv.Normal
}

func (r *NormalRNG) Rand() float64 {
	return r.d.Rand()
}

func NewNormalRNG(mean float64, stdev float64, src rand.Source) *NormalRNG {
	return &NormalRNG{
		d: distuv.Normal{Mu: mean, Sigma: stdev, Src: src},
	}
}
