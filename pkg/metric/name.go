package metric

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logfmt/logfmt"
)

// Labels qualify a name.  A label with an empty value is a flag and is rendered as @key.
type Labels map[string]string

// Name identifies one reported value, such as temperature_mean for machine MX-01.  Names are
// rendered in a modified logfmt that keeps the labels in brackets, e.g.
// temperature_ucl[column=temperature machine=MX-01 @violation]
type Name struct {
	name   string
	labels Labels
}

// NewName returns a name with a copy of labels
func NewName(name string, labels Labels) Name {
	n := Name{name: name, labels: make(Labels, len(labels))}
	for k, v := range labels {
		n.labels[k] = v
	}
	return n
}

// Base returns the name without labels
func (n Name) Base() string {
	return n.name
}

// String renders the name with its labels.  Labels that cannot be encoded are dropped.
func (n Name) String() string {
	l, err := MarshalText(n.labels)
	if err != nil {
		l = []byte{}
	}
	return n.name + string(l)
}

// With returns a new name that adds or replaces labels
func (n Name) With(labels Labels) Name {
	out := NewName(n.name, n.labels)
	for k, v := range labels {
		out.labels[k] = v
	}
	return out
}

// Flag returns a new name with the flags set
func (n Name) Flag(flags ...string) Name {
	out := NewName(n.name, n.labels)
	for _, f := range flags {
		out.labels[f] = ""
	}
	return out
}

// Suffix returns a new name with _suffix appended to the base name
func (n Name) Suffix(suffix string) Name {
	out := NewName(n.name+"_"+suffix, n.labels)
	return out
}

// MarshalText encodes labels as [k=v ... @flag ...].  Keys are sorted and flags follow the key value
// pairs in sorted order.  An empty label set encodes to nothing.
func MarshalText(l Labels) ([]byte, error) {
	if len(l) == 0 {
		return []byte{}, nil
	}
	keys := make([]string, 0, len(l))
	flags := make([]string, 0, len(l))
	for k, v := range l {
		switch v {
		case "":
			flags = append(flags, "@"+k)
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	sort.Strings(flags)

	var b bytes.Buffer
	b.WriteString("[")
	e := logfmt.NewEncoder(&b)
	for _, k := range keys {
		if err := e.EncodeKeyval(k, l[k]); err != nil {
			return nil, fmt.Errorf("failed to encode %s=%s: %v", k, l[k], err)
		}
	}
	if len(keys) > 0 && len(flags) > 0 {
		b.WriteString(" ")
	}
	b.WriteString(strings.Join(flags, " "))
	b.WriteString("]")
	return b.Bytes(), nil
}
