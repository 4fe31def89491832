package classify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Model is a fitted binary logistic regression.  Coef holds one coefficient per feature on the
// raw feature scale.
type Model struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Decision returns the log-odds of the positive class for x
func (m Model) Decision(x []float64) float64 {
	z := m.Intercept
	for j, v := range x {
		z += m.Coef[j] * v
	}
	return z
}

// Predict returns true when x is classified as the positive class
func (m Model) Predict(x []float64) bool {
	return m.Decision(x) > 0
}

// fit is the outcome of an optimizer run
type fit struct {
	Model      Model
	Iterations int
	Status     string
	Loss       float64
}

// balancedWeights weights each sample by n / (2 * count of its class)
func balancedWeights(y []bool) []float64 {
	var counts [2]int
	for _, l := range y {
		counts[classOf(l)]++
	}
	w := make([]float64, len(y))
	for i, l := range y {
		c := counts[classOf(l)]
		w[i] = float64(len(y)) / (2.0 * float64(c))
	}
	return w
}

// fitLogistic minimizes the sample weighted log loss plus an L2 penalty ||coef||^2 / (2C) with
// L-BFGS.  The intercept is not penalized.  Features are standardized for the optimizer and the
// penalty is rescaled to match, so the minimum is the same as on the raw scale.
func fitLogistic(x [][]float64, y []bool, w []float64, c float64, maxIter int) (fit, error) {
	n := len(x)
	if n == 0 {
		return fit{}, fmt.Errorf("no training rows")
	}
	p := len(x[0])

	mu := make([]float64, p)
	sd := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			mu[j] += x[i][j]
		}
		mu[j] /= float64(n)
		for i := 0; i < n; i++ {
			sd[j] += (x[i][j] - mu[j]) * (x[i][j] - mu[j])
		}
		sd[j] = math.Sqrt(sd[j] / float64(n))
		if sd[j] == 0 {
			sd[j] = 1
		}
	}
	z := make([][]float64, n)
	for i := range x {
		z[i] = make([]float64, p)
		for j := range x[i] {
			z[i][j] = (x[i][j] - mu[j]) / sd[j]
		}
	}
	target := make([]float64, n)
	for i, l := range y {
		if l {
			target[i] = 1
		}
	}

	// parameters are [u_0 .. u_p-1, b] with coef_j = u_j / sd_j
	penalty := make([]float64, p)
	for j := range penalty {
		penalty[j] = 1.0 / (c * sd[j] * sd[j])
	}

	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			loss := 0.0
			for i := 0; i < n; i++ {
				m := linear(theta, z[i])
				loss += w[i] * (log1pexp(m) - target[i]*m)
			}
			for j := 0; j < p; j++ {
				loss += 0.5 * penalty[j] * theta[j] * theta[j]
			}
			return loss
		},
		Grad: func(grad, theta []float64) {
			for k := range grad {
				grad[k] = 0
			}
			for i := 0; i < n; i++ {
				r := w[i] * (sigmoid(linear(theta, z[i])) - target[i])
				for j := 0; j < p; j++ {
					grad[j] += r * z[i][j]
				}
				grad[p] += r
			}
			for j := 0; j < p; j++ {
				grad[j] += penalty[j] * theta[j]
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: 1e-8,
	}
	result, err := optimize.Minimize(problem, make([]float64, p+1), settings, &optimize.LBFGS{})
	if result == nil {
		return fit{}, fmt.Errorf("logistic regression optimizer failed: %v", err)
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fit{}, fmt.Errorf("logistic regression diverged: %v", err)
		}
	}

	m := Model{Coef: make([]float64, p)}
	m.Intercept = result.X[p]
	for j := 0; j < p; j++ {
		m.Coef[j] = result.X[j] / sd[j]
		m.Intercept -= m.Coef[j] * mu[j]
	}
	status := result.Status.String()
	if err != nil {
		status = fmt.Sprintf("%s: %v", status, err)
	}
	return fit{Model: m, Iterations: result.MajorIterations, Status: status, Loss: result.F}, nil
}

func linear(theta []float64, x []float64) float64 {
	p := len(x)
	m := theta[p]
	for j := 0; j < p; j++ {
		m += theta[j] * x[j]
	}
	return m
}

func sigmoid(m float64) float64 {
	if m >= 0 {
		return 1 / (1 + math.Exp(-m))
	}
	e := math.Exp(m)
	return e / (1 + e)
}

// log1pexp computes log(1 + exp(m)) without overflow
func log1pexp(m float64) float64 {
	if m > 0 {
		return m + math.Log1p(math.Exp(-m))
	}
	return math.Log1p(math.Exp(m))
}
