package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelsWith(n int, positives int) []bool {
	out := make([]bool, n)
	for i := 0; i < positives; i++ {
		out[i*n/positives] = true
	}
	return out
}

func TestStratifiedSplit(t *testing.T) {
	labels := labelsWith(100, 20)
	train, test, err := StratifiedSplit(labels, 0.3, 42)
	require.NoError(t, err)

	assert.Len(t, test, 30)
	assert.Len(t, train, 70)

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d in both sets", i)
		seen[i] = true
	}
	assert.Len(t, seen, 100)

	positives := 0
	for _, i := range test {
		if labels[i] {
			positives++
		}
	}
	assert.Equal(t, 6, positives)
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	labels := labelsWith(57, 9)
	train1, test1, err := StratifiedSplit(labels, 0.3, 42)
	require.NoError(t, err)
	train2, test2, err := StratifiedSplit(labels, 0.3, 42)
	require.NoError(t, err)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)

	_, test3, err := StratifiedSplit(labels, 0.3, 7)
	require.NoError(t, err)
	assert.NotEqual(t, test1, test3)
}

func TestStratifiedSplitMinority(t *testing.T) {
	// two positives in 200 rows would round to zero test positives
	labels := labelsWith(200, 2)
	train, test, err := StratifiedSplit(labels, 0.3, 42)
	require.NoError(t, err)

	count := func(idx []int) int {
		n := 0
		for _, i := range idx {
			if labels[i] {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, count(test))
	assert.Equal(t, 1, count(train))
}

func TestStratifiedSplitErrors(t *testing.T) {
	tt := []struct {
		name     string
		labels   []bool
		testSize float64
	}{
		{name: "too few rows", labels: []bool{true}, testSize: 0.3},
		{name: "zero test size", labels: labelsWith(10, 2), testSize: 0},
		{name: "full test size", labels: labelsWith(10, 2), testSize: 1},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := StratifiedSplit(tc.labels, tc.testSize, 42)
			assert.Error(t, err)
		})
	}
}

func TestAllocate(t *testing.T) {
	tt := []struct {
		name   string
		nTest  int
		n      int
		counts [2]int
		exp    [2]int
	}{
		{name: "proportional", nTest: 30, n: 100, counts: [2]int{80, 20}, exp: [2]int{24, 6}},
		{name: "remainder to larger fraction", nTest: 4, n: 10, counts: [2]int{7, 3}, exp: [2]int{3, 1}},
		{name: "minority kept on both sides", nTest: 60, n: 200, counts: [2]int{198, 2}, exp: [2]int{59, 1}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, allocate(tc.nTest, tc.n, tc.counts))
		})
	}
}
