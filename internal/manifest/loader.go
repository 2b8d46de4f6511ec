package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"parity/internal/schemadoc"
)

// ReadError wraps a failure to read a manifest file from disk.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read manifest %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError wraps a syntactic or schema failure in a manifest document.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads a manifest from path. YAML and JSON are both accepted: the
// extension decides, and for anything else the content is sniffed.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	m, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return m, nil
}

// Parse decodes and validates a manifest document. ext is the file
// extension hint, including the dot.
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest
	if schemadoc.IsJSON(data, ext) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, err
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, err
		}
	}
	if err := validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func validate(m *Manifest) error {
	if err := schemadoc.Validate(m, manifestSchema, "manifest.schema.json"); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(m.Fixtures))
	for _, f := range m.Fixtures {
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("duplicate fixture id %q", f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}
