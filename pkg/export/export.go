// Package export serializes a selection of readings for download and uploads it to object storage
package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/BTBurke/smi/pkg/store"
	"github.com/BTBurke/smi/pkg/telemetry"
)

// Uploader stores an exported file under name
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) error
}

// FileName returns the download name for a machine's export, readings_<machine>.csv
func FileName(machine string) string {
	if machine == "" {
		machine = "all"
	}
	return fmt.Sprintf("readings_%s.csv", strings.ReplaceAll(machine, "/", "_"))
}

// Encode serializes d in the persisted CSV format
func Encode(d telemetry.Dataset) ([]byte, error) {
	var b bytes.Buffer
	if err := store.WriteCSV(&b, d); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return b.Bytes(), nil
}

// Publish encodes d and uploads it under the machine's file name.  It returns the name used.
func Publish(ctx context.Context, u Uploader, machine string, d telemetry.Dataset) (string, error) {
	data, err := Encode(d)
	if err != nil {
		return "", err
	}
	name := FileName(machine)
	if err := u.Upload(ctx, name, data); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return name, nil
}
