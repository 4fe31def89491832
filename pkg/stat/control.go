package stat

import (
	"math"
	"time"

	"github.com/BTBurke/smi/pkg/telemetry"
)

// Sigma is the width of the Shewhart control limits in standard deviations
const Sigma float64 = 3.0

// Point is one observation of a signal in time
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Control is a Shewhart control chart for one signal.  Center, UCL and LCL are horizontal reference
// lines to overlay on Series.  Violations holds the indexes into Series of points outside the limits.
type Control struct {
	Column     telemetry.Column `json:"column"`
	Mean       float64          `json:"mean"`
	Std        float64          `json:"std"`
	UCL        float64          `json:"ucl"`
	LCL        float64          `json:"lcl"`
	Series     []Point          `json:"series"`
	Violations []int            `json:"violations"`
}

// InControl is true when no point is outside the control limits
func (c Control) InControl() bool {
	return len(c.Violations) == 0
}

// ControlLimits computes the three sigma control chart of column c over d.  With fewer than two
// readings std is NaN and both limits collapse to the mean.
func ControlLimits(d telemetry.Dataset, c telemetry.Column) Control {
	values := d.Values(c)
	mean, std := meanStd(values)

	out := Control{
		Column:     c,
		Mean:       mean,
		Std:        std,
		UCL:        calculateLimit(mean, std, Sigma, 1),
		LCL:        calculateLimit(mean, std, Sigma, -1),
		Series:     Series(d, c),
		Violations: make([]int, 0),
	}
	for i, v := range values {
		if v > out.UCL || v < out.LCL {
			out.Violations = append(out.Violations, i)
		}
	}
	return out
}

// calculateLimit will determine the UCL or LCL limit (UCL => direction +1, LCL => direction -1) at k
// standard deviations from the mean
func calculateLimit(mean float64, std float64, k float64, direction int) float64 {
	if math.IsNaN(std) || math.IsInf(std, 0) {
		return mean
	}
	switch {
	case direction >= 0:
		return mean + (k * std)
	default:
		return mean - (k * std)
	}
}

// Series returns the time series of column c over d
func Series(d telemetry.Dataset, c telemetry.Column) []Point {
	out := make([]Point, len(d))
	for i, r := range d {
		out[i] = Point{Timestamp: r.Timestamp, Value: r.Value(c)}
	}
	return out
}
