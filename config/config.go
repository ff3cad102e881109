// Package config loads declarative topology documents into runnable
// state registries and components
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/c360/flowkit/errors"
)

// Load reads and validates a YAML topology document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("read %s: %w", path, err),
			"config", "Load", "read document")
	}
	return Parse(data)
}

// Parse validates raw YAML against the document schema and decodes it.
func Parse(data []byte) (*Document, error) {
	// YAML is validated through its JSON form so the schema sees the same
	// shapes the decoder will.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("parse YAML: %w", err),
			"config", "Parse", "decode document")
	}
	if raw == nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("document is empty"),
			"config", "Parse", "decode document")
	}

	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("convert to JSON: %w", err),
			"config", "Parse", "prepare validation")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(jsonBytes),
	)
	if err != nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("schema validation: %w", err),
			"config", "Parse", "validate document")
	}
	if !result.Valid() {
		var b strings.Builder
		for _, desc := range result.Errors() {
			fmt.Fprintf(&b, "%s: %s; ", desc.Field(), desc.Description())
		}
		return nil, errors.WrapConfig(
			fmt.Errorf("invalid document: %s", strings.TrimSuffix(b.String(), "; ")),
			"config", "Parse", "validate document")
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("decode document: %w", err),
			"config", "Parse", "decode document")
	}
	return &doc, nil
}
