// Package seed reads a snapshot of raw upstream rows from a YAML or JSON file.
// Rows go through the same normalization as live data.
package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aistats/statshub/internal/models"
	"github.com/aistats/statshub/internal/normalize"
)

// Parse decodes a seed document. JSON input is accepted since it is valid YAML.
// Unknown top-level keys are ignored.
func Parse(data []byte) (*models.Snapshot, error) {
	var raw models.RawSnapshot
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse seed snapshot: %w", err)
	}

	return normalize.Snapshot(raw), nil
}

// LoadFile reads and parses the seed file at path.
func LoadFile(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed snapshot: %w", err)
	}

	snap, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return snap, nil
}
