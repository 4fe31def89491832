package stat

import (
	"math"

	"github.com/BTBurke/smi/pkg/telemetry"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the significance level for the operating vs failure comparison
const Alpha float64 = 0.05

// Verdicts reported by TTest.Verdict
const (
	Significant    = "statistically significant"
	NotSignificant = "not significant"
	Insufficient   = "insufficient data"
)

// TTest is the result of Welch's unequal variance t-test of operating (group 0) against failed
// (group 1) readings.  Statistic is positive when the operating mean is larger.
type TTest struct {
	Column       telemetry.Column `json:"column"`
	Operating    int              `json:"operating"`
	Failed       int              `json:"failed"`
	Statistic    float64          `json:"statistic"`
	DF           float64          `json:"df"`
	PValue       float64          `json:"p_value"`
	Insufficient bool             `json:"insufficient"`
}

// Significant is true when the p-value is below Alpha
func (t TTest) Significant() bool {
	return !t.Insufficient && t.PValue < Alpha
}

// Verdict labels the result for display
func (t TTest) Verdict() string {
	switch {
	case t.Insufficient:
		return Insufficient
	case t.Significant():
		return Significant
	default:
		return NotSignificant
	}
}

// WelchTest compares column c between operating and failed readings of d.  When either group has
// fewer than two readings the result is marked insufficient and the statistic and p-value are NaN.
func WelchTest(d telemetry.Dataset, c telemetry.Column) TTest {
	operating, failed := d.Partition(c)
	out := welch(operating, failed)
	out.Column = c
	return out
}

func welch(a, b []float64) TTest {
	out := TTest{
		Operating: len(a),
		Failed:    len(b),
		Statistic: math.NaN(),
		DF:        math.NaN(),
		PValue:    math.NaN(),
	}
	if len(a) < 2 || len(b) < 2 {
		out.Insufficient = true
		return out
	}
	ma, sa := meanStd(a)
	mb, sb := meanStd(b)
	na, nb := float64(len(a)), float64(len(b))

	va := sa * sa / na
	vb := sb * sb / nb
	out.Statistic = (ma - mb) / math.Sqrt(va+vb)
	out.DF = (va + vb) * (va + vb) / (va*va/(na-1) + vb*vb/(nb-1))
	if !IsDefined(out.Statistic) || !IsDefined(out.DF) || out.DF <= 0 {
		return out
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: out.DF}
	out.PValue = math.Min(1, 2*dist.Survival(math.Abs(out.Statistic)))
	return out
}
