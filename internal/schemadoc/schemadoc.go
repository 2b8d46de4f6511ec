// Package schemadoc holds the shared plumbing for loading configuration
// documents: YAML/JSON format detection and JSON Schema validation of the
// decoded value.
package schemadoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// IsJSON decides the wire format of a document. The file extension wins;
// otherwise the content is sniffed — a document starting with "{" is JSON.
func IsJSON(data []byte, ext string) bool {
	switch strings.ToLower(ext) {
	case ".json":
		return true
	case ".yaml", ".yml":
		return false
	}
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("{"))
}

// Validate round-trips the decoded document through JSON and checks it
// against the given schema source.
func Validate(doc any, schema, name string) error {
	compiler := jsonschema.NewCompiler()
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(schema))
	if err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		return fmt.Errorf("register schema: %w", err)
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("schema validation: %s", flatten(ve))
		}
		return err
	}
	return nil
}

// flatten walks to the most specific cause so the user sees the offending
// location instead of the root "doesn't validate" message.
func flatten(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := "/" + strings.Join(ve.InstanceLocation, "/")
	return fmt.Sprintf("%s: %v", loc, ve.ErrorKind)
}
