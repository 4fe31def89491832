package smi

import (
	"fmt"
	"strconv"
	"time"

	"github.com/BTBurke/smi/pkg/classify"
	"github.com/BTBurke/smi/pkg/telemetry"
)

// Defaults for Config
const (
	DefaultData      = "data/readings.csv"
	DefaultMachine   = "MX-01"
	DefaultAddr      = ":8080"
	DefaultRegenRate = 6.0
)

// dateLayout is accepted wherever a time is configured.  A bare date means midnight UTC.
const dateLayout = "2006-01-02"

type Config struct {
	// Data is the path of the persisted dataset
	Data string
	// Seed controls all randomness of generation
	Seed uint64
	Rows int
	// End anchors the time axis of generated data.  Zero means now at generation time.
	End      time.Time
	Machines []string
	Weights  []float64

	// Machine, From and To select the default analysis window.  Zero From or To default to the
	// machine's observed span.
	Machine string
	From    time.Time
	To      time.Time
	Column  telemetry.Column

	SplitSeed uint64
	Rank      classify.Rank
	Format    Format
	Debug     bool

	Addr string
	// RegenRate is the number of regenerations per minute allowed over HTTP
	RegenRate float64

	NoErrorReports bool

	S3Endpoint string
	S3Bucket   string
	S3Prefix   string
	S3Insecure bool

	// fleet is set once a machine option replaced the default fleet
	fleet bool
}

type ConfigOption func(c *Config) error

// NewConfig applies options over the defaults.  Every failing option is reported, not just the
// first one.
func NewConfig(options ...ConfigOption) (Config, []error) {
	c := Config{
		Data:      DefaultData,
		Seed:      telemetry.DefaultSeed,
		Rows:      telemetry.DefaultRows,
		Machines:  append([]string{}, telemetry.DefaultMachines...),
		Weights:   append([]float64{}, telemetry.DefaultWeights...),
		Machine:   DefaultMachine,
		Column:    telemetry.Temperature,
		SplitSeed: classify.DefaultSeed,
		Rank:      classify.RankSigned,
		Format:    FormatText,
		Addr:      DefaultAddr,
		RegenRate: DefaultRegenRate,
	}

	var errors []error
	for _, option := range options {
		if err := option(&c); err != nil {
			errors = append(errors, err)
		}
	}
	if len(c.Weights) != len(c.Machines) {
		errors = append(errors, fmt.Errorf("got %d machine weights for %d machines", len(c.Weights), len(c.Machines)))
	}
	if !c.From.IsZero() && !c.To.IsZero() && c.To.Before(c.From) {
		errors = append(errors, fmt.Errorf("window end %s is before start %s", c.To.Format(time.RFC3339), c.From.Format(time.RFC3339)))
	}
	return c, errors
}

// Generator returns the generator configuration described by c
func (c Config) Generator() telemetry.GeneratorConfig {
	return telemetry.GeneratorConfig{
		Seed:     c.Seed,
		Rows:     c.Rows,
		End:      c.End,
		Machines: c.Machines,
		Weights:  c.Weights,
	}
}

// Classifier returns the classifier options described by c
func (c Config) Classifier() classify.Options {
	opts := classify.DefaultOptions()
	opts.Seed = c.SplitSeed
	opts.Rank = c.Rank
	return opts
}

// ParseTime accepts RFC3339 or a bare date.  The empty string is the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse time %q, use RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func Data(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("data path cannot be empty")
		}
		c.Data = path
		return nil
	}
}

func Seed(seed string) ConfigOption {
	return func(c *Config) error {
		s, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("could not convert seed to an unsigned integer: %s", seed)
		}
		c.Seed = s
		return nil
	}
}

func Rows(rows string) ConfigOption {
	return func(c *Config) error {
		n, err := strconv.Atoi(rows)
		if err != nil || n <= 0 {
			return fmt.Errorf("rows must be a positive integer: %s", rows)
		}
		c.Rows = n
		return nil
	}
}

func EndTime(end string) ConfigOption {
	return func(c *Config) error {
		t, err := ParseTime(end)
		if err != nil {
			return fmt.Errorf("unrecognized end time: %v", err)
		}
		c.End = t
		return nil
	}
}

// MachineWeight adds a machine to the generated fleet with the given share of readings.  The
// first MachineWeight replaces the default fleet.
func MachineWeight(value string) ConfigOption {
	return func(c *Config) error {
		id, w, err := parseMachineWeight(value)
		if err != nil {
			return err
		}
		if !c.fleet {
			c.Machines, c.Weights = nil, nil
			c.fleet = true
		}
		c.Machines = append(c.Machines, id)
		c.Weights = append(c.Weights, w)
		return nil
	}
}

func parseMachineWeight(value string) (string, float64, error) {
	for i := len(value) - 1; i >= 0; i-- {
		if value[i] == ':' {
			w, err := strconv.ParseFloat(value[i+1:], 64)
			if err != nil || i == 0 {
				break
			}
			return value[:i], w, nil
		}
	}
	return "", 0, fmt.Errorf("invalid machine %q, should be id:weight", value)
}

func Machine(id string) ConfigOption {
	return func(c *Config) error {
		if id == "" {
			return fmt.Errorf("machine cannot be empty")
		}
		c.Machine = id
		return nil
	}
}

func From(from string) ConfigOption {
	return func(c *Config) error {
		t, err := ParseTime(from)
		if err != nil {
			return fmt.Errorf("unrecognized window start: %v", err)
		}
		c.From = t
		return nil
	}
}

func To(to string) ConfigOption {
	return func(c *Config) error {
		t, err := ParseTime(to)
		if err != nil {
			return fmt.Errorf("unrecognized window end: %v", err)
		}
		c.To = t
		return nil
	}
}

func Column(column string) ConfigOption {
	return func(c *Config) error {
		col, err := telemetry.ParseColumn(column)
		if err != nil {
			return err
		}
		c.Column = col
		return nil
	}
}

func SplitSeed(seed string) ConfigOption {
	return func(c *Config) error {
		s, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("could not convert split seed to an unsigned integer: %s", seed)
		}
		c.SplitSeed = s
		return nil
	}
}

func Rank(rank string) ConfigOption {
	return func(c *Config) error {
		r, err := classify.ParseRank(rank)
		if err != nil {
			return err
		}
		c.Rank = r
		return nil
	}
}

func OutputFormat(format string) ConfigOption {
	return func(c *Config) error {
		f, err := ParseFormat(format)
		if err != nil {
			return err
		}
		c.Format = f
		return nil
	}
}

func Debug() ConfigOption {
	return func(c *Config) error {
		c.Debug = true
		return nil
	}
}

func Addr(addr string) ConfigOption {
	return func(c *Config) error {
		if addr == "" {
			return fmt.Errorf("listen address cannot be empty")
		}
		c.Addr = addr
		return nil
	}
}

func RegenRate(rate string) ConfigOption {
	return func(c *Config) error {
		r, err := strconv.ParseFloat(rate, 64)
		if err != nil || r < 0 {
			return fmt.Errorf("regeneration rate must be a non-negative number: %s", rate)
		}
		c.RegenRate = r
		return nil
	}
}

func NoErrorReports() ConfigOption {
	return func(c *Config) error {
		c.NoErrorReports = true
		return nil
	}
}

func S3Endpoint(endpoint string) ConfigOption {
	return func(c *Config) error {
		c.S3Endpoint = endpoint
		return nil
	}
}

func S3Bucket(bucket string) ConfigOption {
	return func(c *Config) error {
		c.S3Bucket = bucket
		return nil
	}
}

func S3Prefix(prefix string) ConfigOption {
	return func(c *Config) error {
		c.S3Prefix = prefix
		return nil
	}
}

func S3Insecure() ConfigOption {
	return func(c *Config) error {
		c.S3Insecure = true
		return nil
	}
}
