package smi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BTBurke/smi/pkg/classify"
	"github.com/BTBurke/smi/pkg/export"
	"github.com/BTBurke/smi/pkg/metric"
	"github.com/BTBurke/smi/pkg/rng"
	"github.com/BTBurke/smi/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	p := NewPipeline(cfg, WithLogger(zaptest.NewLogger(t)), WithCollectors(metric.NewCollectors()))

	g, err := p.Generate()
	require.NoError(t, err)
	assert.Equal(t, 3000, g.Rows)
	assert.Equal(t, fixedEnd, g.End)
	assert.Equal(t, fixedEnd.Add(-2999*time.Hour), g.Start)
	assert.Equal(t, []string{"MX-01", "MX-02", "MX-03"}, g.Machines)

	// replay the machine assignment, which is the first use of the seeded source
	assign, err := rng.NewCategoricalRNG(telemetry.DefaultWeights, rng.NewSource(42))
	require.NoError(t, err)
	expected := 0
	for i := 0; i < 3000; i++ {
		if assign.Index() == 0 {
			expected++
		}
	}

	sel, err := p.Select(Query{Machine: "MX-01"})
	require.NoError(t, err)
	assert.Len(t, sel.Readings, expected)
	assert.Equal(t, sel.Readings[0].Timestamp, sel.From)
	assert.Equal(t, sel.Readings[len(sel.Readings)-1].Timestamp, sel.To)

	a, err := p.Analyze(sel, telemetry.Temperature)
	require.NoError(t, err)
	require.GreaterOrEqual(t, a.Indicators.Failures, 2)
	require.NotNil(t, a.Classifier)
	assert.Nil(t, a.Guard)
	assert.NotEmpty(t, a.Classifier.Report.Classes)
	assert.Equal(t, a.Classifier.Test, a.Classifier.Confusion.Total())
	assert.Equal(t, expected, a.Rows)
	assert.Len(t, a.Summary, 4)
	assert.Len(t, a.Groups, 2)
	assert.Equal(t, a.TTest.Verdict(), a.Verdict)
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := testConfig(t)
	p := NewPipeline(cfg)
	_, err := p.Generate()
	require.NoError(t, err)
	first, err := p.Load()
	require.NoError(t, err)

	_, err = p.Generate()
	require.NoError(t, err)
	second, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readings.csv")
	cfg, errs := NewConfig(Data(path), EndTime("2024-03-01"), Rows("100"))
	require.Empty(t, errs)
	p := NewPipeline(cfg)
	_, err := p.Generate()
	require.NoError(t, err)
	before, err := p.Load()
	require.NoError(t, err)

	p.cfg.Rows = 120
	_, err = p.Generate()
	require.NoError(t, err)
	after, err := p.Load()
	require.NoError(t, err)
	assert.Len(t, before, 100)
	assert.Len(t, after, 120)
}

func TestGenerateFailureReported(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg, errs := NewConfig(Data(filepath.Join(blocker, "readings.csv")))
	require.Empty(t, errs)

	r := new(mockReporter)
	r.Test(silenceT(t))
	r.On("ReportError", mock.Anything).Return().Once()

	p := NewPipeline(cfg, WithErrorReporter(r), WithLogger(zaptest.NewLogger(t)))
	_, err := p.Generate()
	assert.Error(t, err)
	r.AssertExpectations(t)
}

func TestSelect(t *testing.T) {
	cfg := testConfig(t, Rows("500"))
	p := NewPipeline(cfg)
	_, err := p.Generate()
	require.NoError(t, err)
	d, err := p.Load()
	require.NoError(t, err)
	start, end, ok := d.Span("MX-02")
	require.True(t, ok)

	tt := []struct {
		name  string
		q     Query
		empty bool
	}{
		{name: "full span", q: Query{Machine: "MX-02"}},
		{name: "explicit window", q: Query{Machine: "MX-02", From: start.Add(24 * time.Hour), To: end.Add(-24 * time.Hour)}},
		{name: "open end", q: Query{Machine: "MX-02", From: start.Add(48 * time.Hour)}},
		{name: "outside data", q: Query{Machine: "MX-02", From: end.Add(time.Hour), To: end.Add(48 * time.Hour)}, empty: true},
		{name: "unknown machine", q: Query{Machine: "MX-99"}, empty: true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			sel, err := p.Select(tc.q)
			require.NoError(t, err)
			require.NotNil(t, sel.Readings)
			if tc.empty {
				assert.Len(t, sel.Readings, 0)
				return
			}
			assert.NotEmpty(t, sel.Readings)
			for _, r := range sel.Readings {
				assert.Equal(t, "MX-02", r.MachineID)
				assert.False(t, r.Timestamp.Before(sel.From))
				assert.False(t, r.Timestamp.After(sel.To))
			}
			again := Resolve(sel.Readings, Query{Machine: sel.Machine, From: sel.From, To: sel.To})
			assert.Equal(t, sel.Readings, again.Readings)
		})
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	p := NewPipeline(testConfig(t))
	sel := &Selection{Machine: "MX-01", Readings: telemetry.Dataset{}}
	a, err := p.Analyze(sel, telemetry.Temperature)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Rows)
	require.NotNil(t, a.Guard)
	assert.Equal(t, classify.InsufficientData{}, *a.Guard)
	assert.True(t, a.TTest.Insufficient)
	assert.Equal(t, "insufficient data", a.Verdict)
}

func TestAnalyzeSingleFailure(t *testing.T) {
	cfg := testConfig(t)
	d := telemetry.Dataset{}
	for i := 0; i < 30; i++ {
		temp := 70.0 + float64(i%5)
		if i == 10 {
			temp = 95
		}
		d = append(d, telemetry.NewReading(fixedEnd.Add(time.Duration(i)*time.Hour), "MX-01", temp, 3, 130, 55))
	}
	writeDataset(t, cfg.Data, d)

	c := metric.NewCollectors()
	p := NewPipeline(cfg, WithCollectors(c))
	sel, err := p.Select(p.DefaultQuery())
	require.NoError(t, err)
	require.Len(t, sel.Readings, 30)

	a, err := p.Analyze(sel, telemetry.Temperature)
	require.NoError(t, err)
	assert.Nil(t, a.Classifier)
	require.NotNil(t, a.Guard)
	assert.Equal(t, 29, a.Guard.Operating)
	assert.Equal(t, 1, a.Guard.Failed)

	_, err = p.Classify(sel)
	var insufficient classify.InsufficientData
	assert.True(t, errors.As(err, &insufficient))
}

func TestPublish(t *testing.T) {
	cfg := testConfig(t, Rows("200"))
	p := NewPipeline(cfg)
	_, err := p.Generate()
	require.NoError(t, err)
	sel, err := p.Select(Query{Machine: "MX-03"})
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), sel)
	assert.ErrorIs(t, err, ErrNoUploader)

	data, err := export.Encode(sel.Readings)
	require.NoError(t, err)
	u := new(mockUploader)
	u.Test(silenceT(t))
	u.On("Upload", "readings_MX-03.csv", data).Return(nil).Once()

	p = NewPipeline(cfg, WithUploader(u))
	name, err := p.Publish(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, "readings_MX-03.csv", name)
	u.AssertExpectations(t)
}
