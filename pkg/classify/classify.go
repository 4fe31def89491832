// Package classify trains a class balanced logistic regression that predicts the failure label from
// sensor signals and reports how well it does on a held out split.
package classify

import (
	"fmt"

	"github.com/BTBurke/smi/pkg/telemetry"
	"go.uber.org/zap"
)

// Defaults for Options
const (
	DefaultTestSize float64 = 0.3
	DefaultSeed     uint64  = 42
	DefaultMaxIter  int     = 500
	DefaultC        float64 = 1.0
)

// InsufficientData is returned instead of a model when the selection has fewer than two classes or
// the minority class has fewer than two rows.  Widening the time window, choosing another machine or
// regenerating the data are the ways out.
type InsufficientData struct {
	Operating int `json:"operating"`
	Failed    int `json:"failed"`
}

func (e InsufficientData) Error() string {
	return fmt.Sprintf("insufficient data to train failure model: %d operating and %d failed readings, need at least 2 of each", e.Operating, e.Failed)
}

// Options configure training
type Options struct {
	TestSize float64
	Seed     uint64
	MaxIter  int
	// C is the inverse L2 regularization strength
	C      float64
	Rank   Rank
	Logger *zap.Logger
}

// DefaultOptions returns a 70/30 split with seed 42, 500 iterations and C = 1
func DefaultOptions() Options {
	return Options{
		TestSize: DefaultTestSize,
		Seed:     DefaultSeed,
		MaxIter:  DefaultMaxIter,
		C:        DefaultC,
		Rank:     RankSigned,
	}
}

// Result is a trained failure model and its evaluation on the test split
type Result struct {
	Features   []telemetry.Column `json:"features"`
	Train      int                `json:"train"`
	Test       int                `json:"test"`
	Model      Model              `json:"model"`
	Report     Report             `json:"report"`
	Confusion  Confusion          `json:"confusion"`
	Importance []Importance       `json:"importance"`
	Iterations int                `json:"iterations"`
	Status     string             `json:"status"`
}

// Train fits the failure model on features of d.  It returns InsufficientData when the class guard
// fails.  The same selection and options always produce the same result.
func Train(d telemetry.Dataset, features []telemetry.Column, opts Options) (*Result, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("failure model needs at least one feature")
	}
	opts = withDefaults(opts)
	log := opts.Logger

	labels := d.Labels()
	failed := d.Failures()
	operating := len(d) - failed
	if operating < 2 || failed < 2 {
		return nil, InsufficientData{Operating: operating, Failed: failed}
	}

	train, test, err := StratifiedSplit(labels, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to split readings: %v", err)
	}

	x := matrix(d, features)
	xTrain, yTrain := rows(x, labels, train)
	xTest, yTest := rows(x, labels, test)

	f, err := fitLogistic(xTrain, yTrain, balancedWeights(yTrain), opts.C, opts.MaxIter)
	if err != nil {
		return nil, err
	}
	log.Debug("failure model fitted",
		zap.Int("train", len(train)),
		zap.Int("test", len(test)),
		zap.Int("iterations", f.Iterations),
		zap.String("status", f.Status),
		zap.Float64("loss", f.Loss),
	)

	predicted := make([]bool, len(xTest))
	for i, row := range xTest {
		predicted[i] = f.Model.Predict(row)
	}
	confusion := NewConfusion(yTest, predicted)

	return &Result{
		Features:   append([]telemetry.Column{}, features...),
		Train:      len(train),
		Test:       len(test),
		Model:      f.Model,
		Report:     NewReport(confusion),
		Confusion:  confusion,
		Importance: Importances(features, f.Model.Coef, opts.Rank),
		Iterations: f.Iterations,
		Status:     f.Status,
	}, nil
}

func withDefaults(opts Options) Options {
	if opts.TestSize == 0 {
		opts.TestSize = DefaultTestSize
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.C <= 0 {
		opts.C = DefaultC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

func matrix(d telemetry.Dataset, features []telemetry.Column) [][]float64 {
	x := make([][]float64, len(d))
	for i, r := range d {
		x[i] = make([]float64, len(features))
		for j, f := range features {
			x[i][j] = r.Value(f)
		}
	}
	return x
}

func rows(x [][]float64, labels []bool, idx []int) ([][]float64, []bool) {
	xs := make([][]float64, len(idx))
	ys := make([]bool, len(idx))
	for k, i := range idx {
		xs[k] = x[i]
		ys[k] = labels[i]
	}
	return xs, ys
}
