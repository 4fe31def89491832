package classify

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/BTBurke/smi/pkg/rng"
)

// StratifiedSplit partitions the indexes of labels into train and test sets so that each class keeps
// roughly its share in both.  The test set holds ceil(testSize*n) rows.  Every class with at least two
// members is represented in both sets.  The same seed always yields the same split.
func StratifiedSplit(labels []bool, testSize float64, seed uint64) (train []int, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %f", testSize)
	}
	n := len(labels)
	if n < 2 {
		return nil, nil, fmt.Errorf("cannot split %d rows", n)
	}

	byClass := [2][]int{}
	for i, l := range labels {
		byClass[classOf(l)] = append(byClass[classOf(l)], i)
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	alloc := allocate(nTest, n, [2]int{len(byClass[0]), len(byClass[1])})

	r := rand.New(rng.NewSource(seed))
	train = make([]int, 0, n-nTest)
	test = make([]int, 0, nTest)
	for c := 0; c < 2; c++ {
		idx := append([]int{}, byClass[c]...)
		r.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:alloc[c]]...)
		train = append(train, idx[alloc[c]:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// allocate distributes nTest test rows across classes in proportion to their counts.  Floors are
// taken first and the remainder goes to the largest fractional parts, then each class is kept to at
// least one row on each side of the split.
func allocate(nTest int, n int, counts [2]int) [2]int {
	var alloc [2]int
	var frac [2]float64
	assigned := 0
	for c := 0; c < 2; c++ {
		exact := float64(nTest) * float64(counts[c]) / float64(n)
		alloc[c] = int(math.Floor(exact))
		frac[c] = exact - float64(alloc[c])
		assigned += alloc[c]
	}
	for assigned < nTest {
		c := 0
		if frac[1] > frac[0] {
			c = 1
		}
		alloc[c]++
		frac[c] = -1
		assigned++
	}
	for c := 0; c < 2; c++ {
		if counts[c] < 2 {
			continue
		}
		if alloc[c] < 1 {
			alloc[c] = 1
		}
		if alloc[c] > counts[c]-1 {
			alloc[c] = counts[c] - 1
		}
	}
	return alloc
}

func classOf(l bool) int {
	if l {
		return 1
	}
	return 0
}
