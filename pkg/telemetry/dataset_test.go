package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hour(h int) time.Time {
	return anchor.Add(time.Duration(h) * time.Hour)
}

func smallDataset() Dataset {
	return Dataset{
		NewReading(hour(0), "MX-01", 70, 2, 130, 60),
		NewReading(hour(1), "MX-02", 71, 3, 131, 58),
		NewReading(hour(2), "MX-01", 90, 2, 140, 61),
		NewReading(hour(3), "MX-01", 72, 10, 145, 30),
		NewReading(hour(4), "MX-03", 69, 1, 160, 66),
	}
}

func TestFilter(t *testing.T) {
	d := smallDataset()
	tt := []struct {
		name    string
		machine string
		start   time.Time
		end     time.Time
		expect  []time.Time
	}{
		{name: "full range", machine: "MX-01", start: hour(0), end: hour(4), expect: []time.Time{hour(0), hour(2), hour(3)}},
		{name: "inclusive bounds", machine: "MX-01", start: hour(2), end: hour(3), expect: []time.Time{hour(2), hour(3)}},
		{name: "wider than data", machine: "MX-01", start: hour(-100), end: hour(100), expect: []time.Time{hour(0), hour(2), hour(3)}},
		{name: "disjoint", machine: "MX-01", start: hour(10), end: hour(20), expect: []time.Time{}},
		{name: "inverted", machine: "MX-01", start: hour(3), end: hour(0), expect: []time.Time{}},
		{name: "unknown machine", machine: "MX-09", start: hour(0), end: hour(4), expect: []time.Time{}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			out := d.Filter(tc.machine, tc.start, tc.end)
			require.NotNil(t, out)
			assert.Equal(t, tc.expect, out.Timestamps())
		})
	}
}

func TestFilterIdempotent(t *testing.T) {
	d := smallDataset()
	once := d.Filter("MX-01", hour(1), hour(3))
	twice := once.Filter("MX-01", hour(1), hour(3))
	assert.Equal(t, once, twice)
}

func TestFilterDoesNotMutate(t *testing.T) {
	d := smallDataset()
	orig := append(Dataset{}, d...)
	out := d.Filter("MX-01", hour(0), hour(4))
	out[0].Temperature = -1
	assert.Equal(t, orig, d)
}

func TestSpanAndMachines(t *testing.T) {
	d := smallDataset()
	start, end, ok := d.Span("MX-01")
	assert.True(t, ok)
	assert.Equal(t, hour(0), start)
	assert.Equal(t, hour(3), end)

	_, _, ok = d.Span("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"MX-01", "MX-02", "MX-03"}, d.Machines())
}

func TestPartitionAndFailures(t *testing.T) {
	d := smallDataset()
	op, failed := d.Partition(Temperature)
	assert.Equal(t, []float64{70, 71}, op)
	assert.Equal(t, []float64{90, 72, 69}, failed)
	assert.Equal(t, 3, d.Failures())
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "Operating", StatusOf(false).String())
	assert.Equal(t, "Failure", StatusOf(true).String())

	for _, s := range []Status{Operating, Failure} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var back Status
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}
	_, err := ParseStatus("Broken")
	assert.Error(t, err)
}

func TestParseColumn(t *testing.T) {
	c, err := ParseColumn("energy_kwh")
	assert.NoError(t, err)
	assert.Equal(t, Energy, c)

	_, err = ParseColumn("pressure")
	assert.Error(t, err)
}
