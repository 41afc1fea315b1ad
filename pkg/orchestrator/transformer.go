package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/goliatone/go-propform/pkg/schema"
)

// Transformer patches a parsed configuration before a session opens over it.
type Transformer interface {
	Transform(ctx context.Context, cfg *schema.Configuration) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, cfg *schema.Configuration) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, cfg *schema.Configuration) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, cfg)
}

// JSONPresetTransformer applies declarative property overrides loaded from a
// JSON document:
//
//	{
//	  "projectName": "Portal",
//	  "properties": {
//	    "portal.url": {"label": "Public URL", "default": "https://example.com"},
//	    "portal.domain{N}.plan": {"needsConfirmation": true}
//	  }
//	}
//
// Domain properties are addressed by their template key.
type JSONPresetTransformer struct {
	document presetDocument
}

type presetDocument struct {
	ProjectName string                    `json:"projectName"`
	Properties  map[string]propertyPreset `json:"properties"`
}

type propertyPreset struct {
	Label             string  `json:"label"`
	Description       string  `json:"description"`
	Default           *string `json:"default"`
	Required          *bool   `json:"required"`
	NeedsConfirmation *bool   `json:"needsConfirmation"`
}

// NewJSONPresetTransformer constructs a transformer from raw JSON bytes.
func NewJSONPresetTransformer(data []byte) (*JSONPresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("json preset transformer: document is empty")
	}
	var document presetDocument
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("json preset transformer: parse document: %w", err)
	}
	return &JSONPresetTransformer{document: document}, nil
}

// NewJSONPresetTransformerFromFS loads a preset document from fsys.
func NewJSONPresetTransformerFromFS(fsys fs.FS, path string) (*JSONPresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("json preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("json preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("json preset transformer: read %s: %w", path, err)
	}
	return NewJSONPresetTransformer(data)
}

// Transform applies the presets. A preset for an unknown key is an error.
func (t *JSONPresetTransformer) Transform(ctx context.Context, cfg *schema.Configuration) error {
	if cfg == nil {
		return errors.New("json preset transformer: configuration is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if name := strings.TrimSpace(t.document.ProjectName); name != "" {
		cfg.ProjectName = name
	}

	keys := make([]string, 0, len(t.document.Properties))
	for key := range t.document.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		prop := findProperty(cfg, key)
		if prop == nil {
			return fmt.Errorf("json preset transformer: property %q not found", key)
		}
		applyPreset(prop, t.document.Properties[key])
	}
	return nil
}

func applyPreset(prop *schema.Property, preset propertyPreset) {
	if preset.Label != "" {
		prop.Label = preset.Label
	}
	if preset.Description != "" {
		prop.Description = preset.Description
	}
	if preset.Default != nil {
		prop.Default = schema.StringDefault(*preset.Default)
	}
	if preset.Required != nil {
		prop.Required = *preset.Required
	}
	if preset.NeedsConfirmation != nil {
		prop.NeedsConfirmation = *preset.NeedsConfirmation
	}
}

func findProperty(cfg *schema.Configuration, key string) *schema.Property {
	ref, ok := cfg.Locate(key)
	if !ok {
		return nil
	}
	category := cfg.Categories(ref.Scope)[ref.Category]
	return &category.Properties[ref.Index]
}
