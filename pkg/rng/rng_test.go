package rng

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meanStd(val []float64) (float64, float64) {
	sum := 0.0
	for _, v := range val {
		sum += v
	}
	mean := sum / float64(len(val))

	variance := 0.0
	for _, v := range val {
		variance += math.Pow(v-mean, 2.0)
	}
	variance = variance / float64(len(val)-1)
	return mean, math.Sqrt(variance)
}

func TestNormalRNG(t *testing.T) {
	r := NewNormalRNG(72.0, 6.0, NewSource(1))
	mean, std := meanStd(Draw(r, 20000))
	assert.InDelta(t, 72.0, mean, 0.2)
	assert.InDelta(t, 6.0, std, 0.2)
}

func TestGammaRNG(t *testing.T) {
	// shape k, scale theta => mean k*theta, variance k*theta^2
	r := NewGammaRNG(2.2, 2.0, NewSource(1))
	val := Draw(r, 20000)
	for _, v := range val {
		if v < 0 {
			t.Fatalf("gamma draw is negative: %f", v)
		}
	}
	mean, std := meanStd(val)
	assert.InDelta(t, 4.4, mean, 0.1)
	assert.InDelta(t, math.Sqrt(2.2*4.0), std, 0.1)
}

func TestCategoricalRNG(t *testing.T) {
	r, err := NewCategoricalRNG([]float64{0.40, 0.35, 0.25}, NewSource(7))
	require.NoError(t, err)

	counts := make([]int, 3)
	n := 30000
	for i := 0; i < n; i++ {
		counts[r.Index()]++
	}
	assert.InDelta(t, 0.40, float64(counts[0])/float64(n), 0.015)
	assert.InDelta(t, 0.35, float64(counts[1])/float64(n), 0.015)
	assert.InDelta(t, 0.25, float64(counts[2])/float64(n), 0.015)
}

func TestCategoricalWeights(t *testing.T) {
	tt := []struct {
		name    string
		weights []float64
		err     bool
	}{
		{name: "valid", weights: []float64{1, 2}},
		{name: "empty", weights: []float64{}, err: true},
		{name: "negative", weights: []float64{1, -1}, err: true},
		{name: "zero sum", weights: []float64{0, 0}, err: true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCategoricalRNG(tc.weights, NewSource(1))
			if tc.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSeededSequence(t *testing.T) {
	a := Draw(NewNormalRNG(0, 1, NewSource(42)), 100)
	b := Draw(NewNormalRNG(0, 1, NewSource(42)), 100)
	c := Draw(NewNormalRNG(0, 1, NewSource(43)), 100)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDrawEmpty(t *testing.T) {
	assert.Equal(t, []float64{}, Draw(NewNormalRNG(0, 1, NewSource(1)), 0))
}
