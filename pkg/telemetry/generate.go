package telemetry

import (
	"fmt"
	"math"
	"time"

	"github.com/BTBurke/smi/pkg/rng"
)

// Generator defaults
const (
	DefaultSeed uint64 = 42
	DefaultRows int    = 3000
)

// DefaultMachines and DefaultWeights define the fleet and the share of readings assigned to
// each machine
var (
	DefaultMachines = []string{"MX-01", "MX-02", "MX-03"}
	DefaultWeights  = []float64{0.40, 0.35, 0.25}
)

// GeneratorConfig controls a generation run.  A zero End anchors the time axis at the current time,
// which is the only input that makes two runs differ.
type GeneratorConfig struct {
	Seed     uint64
	Rows     int
	End      time.Time
	Machines []string
	Weights  []float64
}

// DefaultGeneratorConfig returns the engineering defaults: seed 42, 3000 rows, three machines
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     DefaultSeed,
		Rows:     DefaultRows,
		Machines: append([]string{}, DefaultMachines...),
		Weights:  append([]float64{}, DefaultWeights...),
	}
}

// Generate synthesizes a dataset of cfg.Rows hourly readings ending at cfg.End.  Signals are drawn from a
// single seeded source in a fixed order (machines, temperature, vibration, energy noise, production
// noise), so the same seed, row count and end instant always produce the same dataset.
//
//	temperature ~ Normal(72, 6)
//	vibration   ~ Gamma(shape 2.2, scale 2)
//	energy      = 80 + 0.6*temperature + 3*vibration + Normal(0, 8)
//	production  = max(0, 70 - 4*vibration + Normal(0, 6))
func Generate(cfg GeneratorConfig) (Dataset, error) {
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("generator needs a positive row count, got %d", cfg.Rows)
	}
	if len(cfg.Machines) == 0 {
		cfg.Machines = DefaultMachines
		cfg.Weights = DefaultWeights
	}
	if len(cfg.Machines) != len(cfg.Weights) {
		return nil, fmt.Errorf("generator has %d machines but %d weights", len(cfg.Machines), len(cfg.Weights))
	}
	end := cfg.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(time.Second)
	}

	n := cfg.Rows
	src := rng.NewSource(cfg.Seed)

	assign, err := rng.NewCategoricalRNG(cfg.Weights, src)
	if err != nil {
		return nil, fmt.Errorf("failed to create machine assignment: %v", err)
	}
	machines := make([]string, n)
	for i := range machines {
		machines[i] = cfg.Machines[assign.Index()]
	}

	temperature := rng.Draw(rng.NewNormalRNG(72, 6, src), n)
	vibration := rng.Draw(rng.NewGammaRNG(2.2, 2, src), n)
	energyNoise := rng.Draw(rng.NewNormalRNG(0, 8, src), n)
	productionNoise := rng.Draw(rng.NewNormalRNG(0, 6, src), n)

	out := make(Dataset, n)
	for i := 0; i < n; i++ {
		ts := end.Add(-time.Duration(n-1-i) * time.Hour)
		energy := 80 + temperature[i]*0.6 + vibration[i]*3 + energyNoise[i]
		production := math.Max(0, 70-vibration[i]*4+productionNoise[i])
		out[i] = NewReading(ts, machines[i], temperature[i], vibration[i], energy, production)
	}
	return out, nil
}
