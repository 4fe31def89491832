package stat

import (
	"math"

	"github.com/BTBurke/smi/pkg/telemetry"
	"gonum.org/v1/gonum/stat"
)

// Matrix is a symmetric pairwise Pearson correlation matrix.  Values[i][j] is the correlation of
// Columns[i] and Columns[j].
type Matrix struct {
	Columns []telemetry.Column `json:"columns"`
	Values  [][]float64        `json:"values"`
}

// At returns the correlation between columns a and b, NaN if either is not in the matrix
func (m Matrix) At(a, b telemetry.Column) float64 {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

func (m Matrix) index(c telemetry.Column) int {
	for i, col := range m.Columns {
		if col == c {
			return i
		}
	}
	return -1
}

// Correlate computes the Pearson correlation matrix of columns over d.  Entries involving a column
// with zero or undefined variance are NaN, including its diagonal.
func Correlate(d telemetry.Dataset, columns []telemetry.Column) Matrix {
	values := make([][]float64, len(columns))
	variable := make([]bool, len(columns))
	for i, c := range columns {
		values[i] = d.Values(c)
		_, std := meanStd(values[i])
		variable[i] = IsDefined(std) && std > 0
	}

	m := Matrix{
		Columns: append([]telemetry.Column{}, columns...),
		Values:  make([][]float64, len(columns)),
	}
	for i := range columns {
		m.Values[i] = make([]float64, len(columns))
	}
	for i := range columns {
		for j := i; j < len(columns); j++ {
			var r float64
			switch {
			case !variable[i] || !variable[j]:
				r = math.NaN()
			case i == j:
				r = 1.0
			default:
				r = clamp(stat.Correlation(values[i], values[j], nil))
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func clamp(r float64) float64 {
	switch {
	case r > 1:
		return 1
	case r < -1:
		return -1
	default:
		return r
	}
}
