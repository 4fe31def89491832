package smi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-yaml/yaml"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(args []string) ([]ConfigOption, error) {
	pf := pflag.NewFlagSet("smi", pflag.ContinueOnError)
	AddFlags(pf)
	if err := pf.Parse(args); err != nil {
		return nil, err
	}
	return Options(pf)
}

func TestParseFlags(t *testing.T) {
	tt := []struct {
		Name     string
		Cmdline  string
		Expected []ConfigOption
		Error    bool
	}{
		{Name: "data", Cmdline: "--data /tmp/readings.csv", Expected: []ConfigOption{Data("/tmp/readings.csv")}},
		{Name: "seed", Cmdline: "--seed 7", Expected: []ConfigOption{Seed("7")}},
		{Name: "rows", Cmdline: "--rows 500", Expected: []ConfigOption{Rows("500")}},
		{Name: "end", Cmdline: "--end 2024-03-01T00:00:00Z", Expected: []ConfigOption{EndTime("2024-03-01T00:00:00Z")}},
		{Name: "machine weights", Cmdline: "--machine-weight A:0.5 --machine-weight B:0.5", Expected: []ConfigOption{MachineWeight("A:0.5"), MachineWeight("B:0.5")}},
		{Name: "machine", Cmdline: "-m MX-02", Expected: []ConfigOption{Machine("MX-02")}},
		{Name: "window", Cmdline: "--from 2024-01-01 --to 2024-02-01", Expected: []ConfigOption{From("2024-01-01"), To("2024-02-01")}},
		{Name: "column", Cmdline: "--column vibration", Expected: []ConfigOption{Column("vibration")}},
		{Name: "split-seed", Cmdline: "--split-seed 3", Expected: []ConfigOption{SplitSeed("3")}},
		{Name: "rank", Cmdline: "--rank magnitude", Expected: []ConfigOption{Rank("magnitude")}},
		{Name: "format", Cmdline: "-f json", Expected: []ConfigOption{OutputFormat("json")}},
		{Name: "debug", Cmdline: "--debug", Expected: []ConfigOption{Debug()}},
		{Name: "debug false", Cmdline: "--debug=false", Expected: []ConfigOption{}},
		{Name: "addr", Cmdline: "--addr :9090", Expected: []ConfigOption{Addr(":9090")}},
		{Name: "regen-rate", Cmdline: "--regen-rate 2", Expected: []ConfigOption{RegenRate("2")}},
		{Name: "no-error-reports", Cmdline: "--no-error-reports", Expected: []ConfigOption{NoErrorReports()}},
		{Name: "s3", Cmdline: "--s3-endpoint localhost:9000 --s3-bucket exports --s3-prefix smi/ --s3-insecure", Expected: []ConfigOption{S3Endpoint("localhost:9000"), S3Bucket("exports"), S3Prefix("smi/"), S3Insecure()}},
		{Name: "error on unknown flag", Cmdline: "--does-not-exist", Error: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			options, err := parse(strings.Split(tc.Cmdline, " "))
			if tc.Error {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			expected, received := createComparisonConfigs(tc.Expected, options)
			assert.Equal(t, expected, received)
		})
	}
}

func TestParseYAML(t *testing.T) {
	tt := []struct {
		Name     string
		Yaml     map[string]interface{}
		Expected []ConfigOption
		Error    bool
	}{
		{Name: "data", Yaml: map[string]interface{}{"data": "/tmp/readings.csv"}, Expected: []ConfigOption{Data("/tmp/readings.csv")}},
		{Name: "seed", Yaml: map[string]interface{}{"seed": 7}, Expected: []ConfigOption{Seed("7")}},
		{Name: "rows", Yaml: map[string]interface{}{"rows": 500}, Expected: []ConfigOption{Rows("500")}},
		{Name: "end", Yaml: map[string]interface{}{"end": "2024-03-01T00:00:00Z"}, Expected: []ConfigOption{EndTime("2024-03-01T00:00:00Z")}},
		{Name: "from date", Yaml: map[string]interface{}{"from": "2024-01-01"}, Expected: []ConfigOption{From("2024-01-01")}},
		{Name: "machine", Yaml: map[string]interface{}{"machine": "MX-03"}, Expected: []ConfigOption{Machine("MX-03")}},
		{Name: "machine weights", Yaml: map[string]interface{}{"machine-weight": []string{"A:0.5", "B:0.5"}}, Expected: []ConfigOption{MachineWeight("A:0.5"), MachineWeight("B:0.5")}},
		{Name: "rank", Yaml: map[string]interface{}{"rank": "magnitude"}, Expected: []ConfigOption{Rank("magnitude")}},
		{Name: "regen-rate float", Yaml: map[string]interface{}{"regen-rate": 1.5}, Expected: []ConfigOption{RegenRate("1.5")}},
		{Name: "debug", Yaml: map[string]interface{}{"debug": true}, Expected: []ConfigOption{Debug()}},
		{Name: "debug false", Yaml: map[string]interface{}{"debug": false}, Expected: []ConfigOption{}},
		{Name: "s3-insecure", Yaml: map[string]interface{}{"s3-insecure": true}, Expected: []ConfigOption{S3Insecure()}},
		{Name: "error on unknown key", Yaml: map[string]interface{}{"does-not-exist": "test"}, Error: true},
		{Name: "error on list for scalar option", Yaml: map[string]interface{}{"machine": []string{"MX-01", "MX-02"}}, Error: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			y, err := yaml.Marshal(tc.Yaml)
			require.NoError(t, err)
			path := filepath.Join(t.TempDir(), "smi.yml")
			require.NoError(t, os.WriteFile(path, y, 0o644))

			options, err := parse([]string{"-c", path})
			if tc.Error {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			expected, received := createComparisonConfigs(tc.Expected, options)
			assert.Equal(t, expected, received)
		})
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smi.yml")
	require.NoError(t, os.WriteFile(path, []byte("machine: MX-03\nseed: 9\n"), 0o644))

	options, err := parse([]string{"-c", path, "--machine", "MX-02"})
	require.NoError(t, err)
	cfg, errs := NewConfig(options...)
	require.Empty(t, errs)
	assert.Equal(t, "MX-02", cfg.Machine)
	assert.Equal(t, uint64(9), cfg.Seed)
}

func TestParseMissingFile(t *testing.T) {
	_, err := parse([]string{"-c", filepath.Join(t.TempDir(), "missing.yml")})
	assert.Error(t, err)
}

func createComparisonConfigs(expected []ConfigOption, received []ConfigOption) (Config, Config) {
	expectedConfig := Config{}
	for _, eo := range expected {
		eo(&expectedConfig)
	}
	receivedConfig := Config{}
	for _, to := range received {
		to(&receivedConfig)
	}
	return expectedConfig, receivedConfig
}
