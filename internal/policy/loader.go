package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"parity/internal/schemadoc"
)

// Load reads a tolerance policy from path, YAML or JSON.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	p, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a policy document.
func Parse(data []byte, ext string) (*Policy, error) {
	var p Policy
	if schemadoc.IsJSON(data, ext) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
	}
	if err := schemadoc.Validate(&p, policySchema, "policy.schema.json"); err != nil {
		return nil, err
	}
	if err := validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
