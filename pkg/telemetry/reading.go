// Package telemetry defines the machine sensor reading, the dataset of readings and the seeded generator
// that synthesizes them.
package telemetry

import (
	"fmt"
	"time"
)

// Failure thresholds.  A reading is a failure when any signal exceeds its limit.
const (
	TemperatureLimit float64 = 88.0
	VibrationLimit   float64 = 9.0
	EnergyLimit      float64 = 150.0
)

// Status is the operating label derived from the failure flag
type Status int

const (
	Operating Status = iota
	Failure
)

func (s Status) String() string {
	switch s {
	case Operating:
		return "Operating"
	case Failure:
		return "Failure"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// StatusOf maps the failure flag to its status label
func StatusOf(failure bool) Status {
	if failure {
		return Failure
	}
	return Operating
}

// ParseStatus is the inverse of Status.String
func ParseStatus(s string) (Status, error) {
	switch s {
	case "Operating":
		return Operating, nil
	case "Failure":
		return Failure, nil
	default:
		return Operating, fmt.Errorf("unknown status: %s", s)
	}
}

// Column names one of the numeric signals of a reading
type Column string

const (
	Temperature Column = "temperature"
	Vibration   Column = "vibration"
	Energy      Column = "energy_kwh"
	Production  Column = "production_units"
)

// Signals is the fixed list of numeric columns used for statistics and as classifier features
var Signals = []Column{Temperature, Vibration, Energy, Production}

// ParseColumn validates a signal column name
func ParseColumn(s string) (Column, error) {
	for _, c := range Signals {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown signal column: %s", s)
}

// Reading is one hourly record for a machine
type Reading struct {
	Timestamp       time.Time `json:"timestamp"`
	MachineID       string    `json:"machine_id"`
	Temperature     float64   `json:"temperature"`
	Vibration       float64   `json:"vibration"`
	EnergyKWh       float64   `json:"energy_kwh"`
	ProductionUnits float64   `json:"production_units"`
	Failure         bool      `json:"failure"`
	Status          Status    `json:"status"`
}

// Value returns the value of the signal column c
func (r Reading) Value(c Column) float64 {
	switch c {
	case Temperature:
		return r.Temperature
	case Vibration:
		return r.Vibration
	case Energy:
		return r.EnergyKWh
	case Production:
		return r.ProductionUnits
	default:
		panic(fmt.Sprintf("telemetry: unknown column %q", string(c)))
	}
}

// IsFailure applies the industrial failure rule to the three monitored signals
func IsFailure(temperature, vibration, energy float64) bool {
	return temperature > TemperatureLimit || vibration > VibrationLimit || energy > EnergyLimit
}

// NewReading builds a reading and derives its failure flag and status from the signals
func NewReading(ts time.Time, machine string, temperature, vibration, energy, production float64) Reading {
	failure := IsFailure(temperature, vibration, energy)
	return Reading{
		Timestamp:       ts,
		MachineID:       machine,
		Temperature:     temperature,
		Vibration:       vibration,
		EnergyKWh:       energy,
		ProductionUnits: production,
		Failure:         failure,
		Status:          StatusOf(failure),
	}
}
