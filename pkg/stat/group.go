package stat

import (
	"math"

	"github.com/BTBurke/smi/pkg/telemetry"
)

// Group is the five number summary of a signal for readings sharing a status
type Group struct {
	Status telemetry.Status `json:"status"`
	Count  int              `json:"count"`
	Mean   float64          `json:"mean"`
	Min    float64          `json:"min"`
	Q1     float64          `json:"q1"`
	Median float64          `json:"median"`
	Q3     float64          `json:"q3"`
	Max    float64          `json:"max"`
}

// GroupSummary summarizes column c by status.  Both statuses are always present, in order Operating
// then Failure.
func GroupSummary(d telemetry.Dataset, c telemetry.Column) []Group {
	operating, failed := d.Partition(c)
	return []Group{
		group(telemetry.Operating, operating),
		group(telemetry.Failure, failed),
	}
}

func group(s telemetry.Status, values []float64) Group {
	sum := summarize(values)
	return Group{
		Status: s,
		Count:  sum.Count,
		Mean:   sum.Mean,
		Min:    sum.Min,
		Q1:     sum.Q25,
		Median: sum.Q50,
		Q3:     sum.Q75,
		Max:    sum.Max,
	}
}

// Indicators are the headline operating figures for a selection
type Indicators struct {
	Rows            int     `json:"rows"`
	MeanProduction  float64 `json:"mean_production"`
	MeanTemperature float64 `json:"mean_temperature"`
	MeanEnergy      float64 `json:"mean_energy"`
	Failures        int     `json:"failures"`
}

// OperatingIndicators returns the headline figures for d.  Means are NaN for an empty selection.
func OperatingIndicators(d telemetry.Dataset) Indicators {
	mean := func(c telemetry.Column) float64 {
		if len(d) == 0 {
			return math.NaN()
		}
		m, _ := meanStd(d.Values(c))
		return m
	}
	return Indicators{
		Rows:            len(d),
		MeanProduction:  mean(telemetry.Production),
		MeanTemperature: mean(telemetry.Temperature),
		MeanEnergy:      mean(telemetry.Energy),
		Failures:        d.Failures(),
	}
}
