package schema

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-propform/pkg/keytemplate"
)

// Configuration is the root aggregate of a form document.
type Configuration struct {
	ProjectName        string          `json:"projectName"`
	ProjectDescription string          `json:"projectDescription,omitempty"`
	Version            string          `json:"version,omitempty"`
	Subcategory        string          `json:"subcategory,omitempty"`
	OutputFileName     string          `json:"outputFileName,omitempty"`
	DomainKeyPattern   string          `json:"domainKeyPattern,omitempty"`
	DomainCountKey     string          `json:"domainCountKey,omitempty"`
	GlobalProperties   []Category      `json:"globalProperties" validate:"dive"`
	DomainProperties   []Category      `json:"domainProperties" validate:"dive"`
	MexicoStates       []Option        `json:"mexicoStates,omitempty" validate:"dive"`
	PaymentPeriods     []PaymentPeriod `json:"paymentPeriods,omitempty" validate:"dive"`
}

// Category groups properties under a named section.
type Category struct {
	Name       string     `json:"category" validate:"required"`
	Icon       string     `json:"icon,omitempty"`
	IsDomain   bool       `json:"isDomain,omitempty"`
	Properties []Property `json:"properties" validate:"dive"`
}

// Option is a value/label pair offered by select-like fields.
type Option struct {
	Value string `json:"value" validate:"required"`
	Label string `json:"label"`
}

// PaymentPeriod is an option that can be disabled.
type PaymentPeriod struct {
	Value   string `json:"value" validate:"required"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// Dependency ties a property's visibility to another property's value.
type Dependency struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// RepeatRule expands one property into N concrete keys, N being the current
// value of the property named by Key.
type RepeatRule struct {
	Key         string `json:"key" validate:"required"`
	Placeholder string `json:"placeholder,omitempty"`
	Label       string `json:"label,omitempty"`
}

// DynamicOptions derives select options by splitting another property's
// value on Separator.
type DynamicOptions struct {
	Key       string `json:"key" validate:"required"`
	Separator string `json:"separator,omitempty"`
}

// Property describes one configurable key.
type Property struct {
	Key               string `validate:"required"`
	Label             string
	Field             Field
	Default           DefaultValue
	Required          bool
	NeedsConfirmation bool
	Description       string
	AutoFillDomainID  bool

	DependsOn          *Dependency
	RepeatBasedOn      *RepeatRule
	DynamicOptionsFrom *DynamicOptions
}

// Type returns the property's variant name. Properties without a field are
// treated as text.
func (p Property) Type() FieldType {
	if p.Field == nil {
		return TypeText
	}
	return p.Field.Type()
}

// BooleanType returns the boolean spelling for boolean properties and "" for
// every other variant.
func (p Property) BooleanType() BooleanType {
	if f, ok := p.Field.(BooleanField); ok {
		return f.BooleanType
	}
	return ""
}

// IsTemplate reports whether the key carries the domain placeholder.
func (p Property) IsTemplate() bool {
	return keytemplate.IsTemplate(p.Key)
}

// RepeatPlaceholder returns the placeholder used for repeat expansion.
func (p Property) RepeatPlaceholder() string {
	if p.RepeatBasedOn == nil || p.RepeatBasedOn.Placeholder == "" {
		return "[N]"
	}
	return p.RepeatBasedOn.Placeholder
}

// SeparatorOrDefault returns the configured separator, "," when unset.
func (d DynamicOptions) SeparatorOrDefault() string {
	if d.Separator == "" {
		return ","
	}
	return d.Separator
}

type propertyWire struct {
	Key                string          `json:"key"`
	Label              string          `json:"label,omitempty"`
	Type               FieldType       `json:"type"`
	Default            DefaultValue    `json:"default"`
	Required           bool            `json:"required"`
	NeedsConfirmation  bool            `json:"needsConfirmation"`
	ConfirmOnZero      bool            `json:"confirmOnZero,omitempty"`
	Description        string          `json:"description,omitempty"`
	BooleanType        BooleanType     `json:"booleanType,omitempty"`
	CheckService       bool            `json:"checkService,omitempty"`
	AutoFillDomainID   bool            `json:"autoFillDomainId,omitempty"`
	Options            []Option        `json:"options,omitempty"`
	DependsOn          *Dependency     `json:"dependsOn,omitempty"`
	RepeatBasedOn      *RepeatRule     `json:"repeatBasedOn,omitempty"`
	DynamicOptionsFrom *DynamicOptions `json:"dynamicOptionsFrom,omitempty"`
}

// MarshalJSON flattens the variant back into the document shape.
func (p Property) MarshalJSON() ([]byte, error) {
	w := propertyWire{
		Key:                p.Key,
		Label:              p.Label,
		Type:               p.Type(),
		Default:            p.Default,
		Required:           p.Required,
		NeedsConfirmation:  p.NeedsConfirmation,
		Description:        p.Description,
		AutoFillDomainID:   p.AutoFillDomainID,
		DependsOn:          p.DependsOn,
		RepeatBasedOn:      p.RepeatBasedOn,
		DynamicOptionsFrom: p.DynamicOptionsFrom,
	}
	switch f := p.Field.(type) {
	case NumberField:
		w.ConfirmOnZero = f.ConfirmOnZero
	case BooleanField:
		w.BooleanType = f.BooleanType
	case URLField:
		w.CheckService = f.CheckService
	case SelectField:
		w.Options = f.Options
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the document shape into the matching variant.
func (p *Property) UnmarshalJSON(data []byte) error {
	var w propertyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	field, err := newField(w.Type, w)
	if err != nil {
		return fmt.Errorf("schema: property %q: %w", w.Key, err)
	}
	*p = Property{
		Key:                w.Key,
		Label:              w.Label,
		Field:              field,
		Default:            w.Default,
		Required:           w.Required,
		NeedsConfirmation:  w.NeedsConfirmation,
		Description:        w.Description,
		AutoFillDomainID:   w.AutoFillDomainID,
		DependsOn:          w.DependsOn,
		RepeatBasedOn:      w.RepeatBasedOn,
		DynamicOptionsFrom: w.DynamicOptionsFrom,
	}
	return nil
}
