package telemetry

import (
	"sort"
	"time"
)

// Dataset is an ordered sequence of readings in generation order.  Operations on a dataset never
// modify it; filtering returns a new dataset.
type Dataset []Reading

// Filter returns the readings for machine with a timestamp in the inclusive range [start, end].  An
// empty dataset is returned when nothing matches, including when start is after end.
func (d Dataset) Filter(machine string, start, end time.Time) Dataset {
	out := make(Dataset, 0)
	for _, r := range d {
		if r.MachineID != machine {
			continue
		}
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Machine returns every reading for machine regardless of time
func (d Dataset) Machine(machine string) Dataset {
	out := make(Dataset, 0)
	for _, r := range d {
		if r.MachineID == machine {
			out = append(out, r)
		}
	}
	return out
}

// Machines returns the sorted distinct machine identifiers
func (d Dataset) Machines() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range d {
		if _, ok := seen[r.MachineID]; ok {
			continue
		}
		seen[r.MachineID] = struct{}{}
		out = append(out, r.MachineID)
	}
	sort.Strings(out)
	return out
}

// Span returns the earliest and latest timestamp observed for machine.  ok is false when the machine
// has no readings.
func (d Dataset) Span(machine string) (start time.Time, end time.Time, ok bool) {
	for _, r := range d {
		if r.MachineID != machine {
			continue
		}
		if !ok || r.Timestamp.Before(start) {
			start = r.Timestamp
		}
		if !ok || r.Timestamp.After(end) {
			end = r.Timestamp
		}
		ok = true
	}
	return start, end, ok
}

// Values returns the column c for every reading in order
func (d Dataset) Values(c Column) []float64 {
	out := make([]float64, len(d))
	for i, r := range d {
		out[i] = r.Value(c)
	}
	return out
}

// Timestamps returns the timestamp of every reading in order
func (d Dataset) Timestamps() []time.Time {
	out := make([]time.Time, len(d))
	for i, r := range d {
		out[i] = r.Timestamp
	}
	return out
}

// Labels returns the failure flag of every reading in order
func (d Dataset) Labels() []bool {
	out := make([]bool, len(d))
	for i, r := range d {
		out[i] = r.Failure
	}
	return out
}

// Partition splits the column c into operating (failure = 0) and failed (failure = 1) values
func (d Dataset) Partition(c Column) (operating []float64, failed []float64) {
	operating = make([]float64, 0)
	failed = make([]float64, 0)
	for _, r := range d {
		switch r.Failure {
		case true:
			failed = append(failed, r.Value(c))
		default:
			operating = append(operating, r.Value(c))
		}
	}
	return operating, failed
}

// Failures returns the number of failure readings
func (d Dataset) Failures() int {
	n := 0
	for _, r := range d {
		if r.Failure {
			n++
		}
	}
	return n
}
