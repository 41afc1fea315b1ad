package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

var requiredCollections = []string{"globalProperties", "domainProperties"}

// Parse decodes a configuration document. JSON is tried first, then YAML.
// Documents missing globalProperties or domainProperties fail with
// ErrMalformedSchema.
func Parse(data []byte) (Configuration, error) {
	normalized, err := Normalize(data)
	if err != nil {
		return Configuration{}, err
	}

	var cfg Configuration
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("schema: decode configuration: %w", err)
	}
	return cfg, nil
}

// ParseDocument decodes the payload carried by doc.
func ParseDocument(doc Document) (Configuration, error) {
	cfg, err := Parse(doc.raw)
	if err != nil {
		if loc := doc.Location(); loc != "" {
			return Configuration{}, fmt.Errorf("%s: %w", loc, err)
		}
		return Configuration{}, err
	}
	return cfg, nil
}

// Normalize returns the JSON form of a JSON or YAML document after checking
// the required top-level collections are present.
func Normalize(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrMalformedSchema)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		converted, yerr := yamlToJSON(trimmed)
		if yerr != nil {
			return nil, fmt.Errorf("%w: invalid JSON or YAML", ErrMalformedSchema)
		}
		trimmed = converted
		top = nil
		if err := json.Unmarshal(trimmed, &top); err != nil {
			return nil, fmt.Errorf("%w: document is not an object", ErrMalformedSchema)
		}
	}

	for _, name := range requiredCollections {
		raw, ok := top[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedSchema, name)
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			return nil, fmt.Errorf("%w: %s must be an array", ErrMalformedSchema, name)
		}
	}
	return trimmed, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("schema: yaml document is not a mapping")
	}
	return json.Marshal(doc)
}
