package report

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ExportJSON renders the report as indented JSON
func ExportJSON(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report as JSON: %w", err)
	}
	return data, nil
}

// ExportYAML renders the report as YAML
func ExportYAML(r *Report) ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report as YAML: %w", err)
	}
	return data, nil
}
