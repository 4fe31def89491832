// Package stat computes descriptive statistics, correlation, control limits and group comparisons over
// a selection of readings.  Undefined statistics (empty selections, zero means, zero variance) are
// reported as NaN or Inf values rather than errors.
package stat

import (
	"math"
	"sort"

	"github.com/BTBurke/smi/pkg/telemetry"
	"gonum.org/v1/gonum/stat"
)

// Summary describes one signal column over a selection
type Summary struct {
	Column telemetry.Column `json:"column"`
	Count  int              `json:"count"`
	Mean   float64          `json:"mean"`
	Std    float64          `json:"std"`
	Min    float64          `json:"min"`
	Q25    float64          `json:"25%"`
	Q50    float64          `json:"50%"`
	Q75    float64          `json:"75%"`
	Max    float64          `json:"max"`
	// CV is the coefficient of variation std/mean in percent
	CV float64 `json:"cv_%"`
}

// Describe summarizes each column of d
func Describe(d telemetry.Dataset, columns []telemetry.Column) []Summary {
	out := make([]Summary, 0, len(columns))
	for _, c := range columns {
		s := summarize(d.Values(c))
		s.Column = c
		out = append(out, s)
	}
	return out
}

func summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if len(values) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max, s.CV = nan, nan, nan, nan, nan, nan, nan, nan
		return s
	}
	sorted := sortedCopy(values)
	s.Mean, s.Std = meanStd(values)
	s.Min = sorted[0]
	s.Q25 = percentile(sorted, 0.25)
	s.Q50 = percentile(sorted, 0.50)
	s.Q75 = percentile(sorted, 0.75)
	s.Max = sorted[len(sorted)-1]
	s.CV = s.Std / s.Mean * 100
	return s
}

// meanStd returns the mean and sample standard deviation.  std is NaN with fewer than two values.
func meanStd(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return values[0], math.NaN()
	default:
		return stat.MeanStdDev(values, nil)
	}
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// percentile linearly interpolates between the closest ranks of sorted values at position
// (n-1)*p.  gonum's LinInterp uses a different plotting position, so it is computed here.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// IsDefined reports whether v is a finite value
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
