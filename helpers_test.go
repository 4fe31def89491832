package smi

import (
	"context"
	"testing"
	"time"

	"github.com/BTBurke/smi/pkg/store"
	"github.com/BTBurke/smi/pkg/telemetry"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// test helper silences superfluous logging calls from the mock package
type foo struct {
	t *testing.T
}

func (f foo) Logf(format string, args ...interface{}) {
	// makes mock calls to log a no op to prevent a lot of superfluous logging calls
}
func (f foo) Errorf(format string, args ...interface{}) {
	f.t.Errorf(format, args...)
}
func (f foo) FailNow() {
	f.t.FailNow()
}

func silenceT(t *testing.T) mock.TestingT {
	return foo{t}
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) ReportError(err error) {
	m.Called(err)
}

func (m *mockReporter) Wait() {}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, name string, data []byte) error {
	args := m.Called(name, data)
	return args.Error(0)
}

// fixedEnd anchors generated test data so runs are reproducible
var fixedEnd = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testConfig(t *testing.T, options ...ConfigOption) Config {
	opts := append([]ConfigOption{
		Data(t.TempDir() + "/readings.csv"),
		EndTime(fixedEnd.Format(time.RFC3339)),
	}, options...)
	cfg, errs := NewConfig(opts...)
	require.Empty(t, errs)
	return cfg
}

// writeDataset persists d at path in the dataset format
func writeDataset(t *testing.T, path string, d telemetry.Dataset) {
	require.NoError(t, store.New(path).Save(d))
}
