package smi

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/spf13/pflag"
)

// AddFlags registers every configuration flag on fs
func AddFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Use yaml configuration file")
	fs.String("data", DefaultData, "Path of the dataset file")
	fs.Uint64("seed", 42, "Seed for all randomness of generation")
	fs.Int("rows", 3000, "Number of hourly readings to generate")
	fs.String("end", "", "Timestamp of the last generated reading, RFC3339 or YYYY-MM-DD.  Defaults to now.")
	fs.StringArray("machine-weight", nil, "Machine and its share of generated readings as id:weight.  Repeat for each machine.  Default MX-01:0.40 MX-02:0.35 MX-03:0.25")
	fs.StringP("machine", "m", DefaultMachine, "Machine to analyze")
	fs.String("from", "", "Start of the analysis window, inclusive.  Defaults to the first reading of the machine.")
	fs.String("to", "", "End of the analysis window, inclusive.  Defaults to the last reading of the machine.")
	fs.String("column", "temperature", "Signal for control limits, the t-test and group summary: temperature, vibration, energy_kwh or production_units")
	fs.Uint64("split-seed", 42, "Seed of the classifier train/test split")
	fs.String("rank", "signed", "Feature ranking of the classifier: signed or magnitude")
	fs.StringP("format", "f", "text", "Report format: text, logfmt or json")
	fs.Bool("debug", false, "Enable debug logging")
	fs.String("addr", DefaultAddr, "Listen address of the HTTP server")
	fs.Float64("regen-rate", DefaultRegenRate, "Regenerations per minute allowed over HTTP, 0 disables regeneration")
	fs.Bool("no-error-reports", false, "Do not send reports when there are unexpected errors")
	fs.String("s3-endpoint", "", "Endpoint of the S3 compatible store for exports as host:port")
	fs.String("s3-bucket", "", "Bucket for exports")
	fs.String("s3-prefix", "", "Prefix for exported object names")
	fs.Bool("s3-insecure", false, "Do not use TLS to connect to the S3 endpoint")
}

// Options converts the flags set on fs to configuration options.  Options from a configuration file
// come first so flags given on the command line override them.
func Options(fs *pflag.FlagSet) ([]ConfigOption, error) {
	var options []ConfigOption
	if f := fs.Lookup("config"); f != nil && f.Changed {
		opts, err := parseFromFile(f.Value.String())
		if err != nil {
			return nil, err
		}
		options = append(options, opts...)
	}

	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil || f.Name == "config" {
			return
		}
		for _, value := range flagValues(f) {
			option, e := handleOption(f.Name, value)
			if e != nil {
				err = e
				return
			}
			options = append(options, option)
		}
	})
	if err != nil {
		return nil, err
	}
	return options, nil
}

// flagValues returns each value of a repeatable flag, or the single value of any other flag
func flagValues(f *pflag.Flag) []string {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.GetSlice()
	}
	return []string{f.Value.String()}
}

func handleOption(name string, value string) (ConfigOption, error) {
	switch name {
	case "data":
		return Data(value), nil
	case "seed":
		return Seed(value), nil
	case "rows":
		return Rows(value), nil
	case "end":
		return EndTime(value), nil
	case "machine-weight":
		return MachineWeight(value), nil
	case "machine":
		return Machine(value), nil
	case "from":
		return From(value), nil
	case "to":
		return To(value), nil
	case "column":
		return Column(value), nil
	case "split-seed":
		return SplitSeed(value), nil
	case "rank":
		return Rank(value), nil
	case "format":
		return OutputFormat(value), nil
	case "debug":
		return boolOption(name, value, Debug)
	case "addr":
		return Addr(value), nil
	case "regen-rate":
		return RegenRate(value), nil
	case "no-error-reports":
		return boolOption(name, value, NoErrorReports)
	case "s3-endpoint":
		return S3Endpoint(value), nil
	case "s3-bucket":
		return S3Bucket(value), nil
	case "s3-prefix":
		return S3Prefix(value), nil
	case "s3-insecure":
		return boolOption(name, value, S3Insecure)
	default:
		return nil, fmt.Errorf("unknown option: %s", name)
	}
}

// boolOption returns the option when value is true and a no-op when it is false
func boolOption(name string, value string, option func() ConfigOption) (ConfigOption, error) {
	if value == "" {
		return option(), nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("option %s must be true or false, got %s", name, value)
	}
	if !b {
		return func(c *Config) error { return nil }, nil
	}
	return option(), nil
}

func parseFromFile(fpath string) ([]ConfigOption, error) {
	var options []ConfigOption
	data, err := os.ReadFile(fpath)
	if err != nil {
		return options, err
	}

	cfg := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return options, err
	}
	for k, v := range cfg {
		switch val := v.(type) {
		case string:
			opt, err := handleOption(k, val)
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case int:
			opt, err := handleOption(k, strconv.Itoa(val))
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case float64:
			opt, err := handleOption(k, strconv.FormatFloat(val, 'g', -1, 64))
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case bool:
			opt, err := handleOption(k, strconv.FormatBool(val))
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case time.Time:
			opt, err := handleOption(k, val.Format(time.RFC3339Nano))
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		// handles the case of a list of machines
		case []interface{}:
			if k != "machine-weight" {
				return options, fmt.Errorf("option %s does not accept a list", k)
			}
			for _, item := range val {
				opt, err := handleOption(k, fmt.Sprint(item))
				if err != nil {
					return options, err
				}
				options = append(options, opt)
			}
		default:
			return options, fmt.Errorf("could not process config key %s, unknown type", k)
		}
	}
	return options, nil
}
