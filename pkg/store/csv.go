package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/BTBurke/smi/pkg/telemetry"
)

// Header is the exact column order of the persisted format
var Header = []string{"timestamp", "machine_id", "temperature", "vibration", "energy_kwh", "production_units", "failure", "status"}

// TimeFormat is the layout timestamps are written in
const TimeFormat = time.RFC3339Nano

// readLayouts are tried in order when parsing a timestamp.  Files written by other tools commonly use
// a space separated layout without a zone, which is read as UTC.
var readLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// WriteCSV writes d with a header row in the persisted format
func WriteCSV(w io.Writer, d telemetry.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range d {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(r telemetry.Reading) []string {
	failure := "0"
	if r.Failure {
		failure = "1"
	}
	return []string{
		r.Timestamp.UTC().Format(TimeFormat),
		r.MachineID,
		formatFloat(r.Temperature),
		formatFloat(r.Vibration),
		formatFloat(r.EnergyKWh),
		formatFloat(r.ProductionUnits),
		failure,
		r.Status.String(),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadCSV parses a dataset in the persisted format.  The header must match exactly and every row's
// status must agree with its failure flag.
func ReadCSV(r io.Reader) (telemetry.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.ReuseRecord = true

	header, err := cr.Read()
	switch {
	case err == io.EOF:
		return nil, fmt.Errorf("missing header")
	case err != nil:
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range Header {
		if header[i] != h {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], h)
		}
	}

	d := telemetry.Dataset{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return d, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		reading, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		d = append(d, reading)
	}
}

func parseRecord(rec []string) (telemetry.Reading, error) {
	var r telemetry.Reading
	ts, err := parseTime(rec[0])
	if err != nil {
		return r, err
	}
	r.Timestamp = ts
	r.MachineID = rec[1]

	fields := []*float64{&r.Temperature, &r.Vibration, &r.EnergyKWh, &r.ProductionUnits}
	for i, f := range fields {
		v, err := strconv.ParseFloat(rec[2+i], 64)
		if err != nil {
			return r, fmt.Errorf("invalid %s %q", Header[2+i], rec[2+i])
		}
		*f = v
	}

	switch rec[6] {
	case "0", "false", "False":
		r.Failure = false
	case "1", "true", "True":
		r.Failure = true
	default:
		return r, fmt.Errorf("invalid failure flag %q", rec[6])
	}
	status, err := telemetry.ParseStatus(rec[7])
	if err != nil {
		return r, err
	}
	if status != telemetry.StatusOf(r.Failure) {
		return r, fmt.Errorf("status %s does not match failure flag %s", rec[7], rec[6])
	}
	r.Status = status
	return r, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
