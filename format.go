package smi

import "fmt"

// Format is an output format for reports
type Format int

const (
	FormatText Format = iota
	FormatLogfmt
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatLogfmt:
		return "logfmt"
	case FormatJSON:
		return "json"
	default:
		return "text"
	}
}

// ParseFormat parses text, logfmt or json
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "logfmt":
		return FormatLogfmt, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown report format: %s", s)
	}
}
