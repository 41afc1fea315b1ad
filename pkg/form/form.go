// Package form turns a session into a renderer-neutral form description:
// sections per category, one field per property with its current value,
// visibility and confirmation state, and the domain tabs.
package form

import (
	"fmt"

	"github.com/goliatone/go-propform/pkg/codec/properties"
	"github.com/goliatone/go-propform/pkg/keytemplate"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/session"
	"github.com/goliatone/go-propform/pkg/visibility"
)

// MaxRepeat caps the rendered instances of a repeatable property.
const MaxRepeat = session.MaxRepeat

// Form is the complete form for the active domain.
type Form struct {
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Version        string      `json:"version,omitempty"`
	OutputFileName string      `json:"outputFileName,omitempty"`
	Global         []Section   `json:"global"`
	Domain         []Section   `json:"domain"`
	Domains        []DomainTab `json:"domains"`
	ActiveDomain   int         `json:"activeDomain"`
	// Pending counts fields still waiting for a confirmation.
	Pending int `json:"pending"`
}

// Section is one category.
type Section struct {
	Name   string       `json:"name"`
	Icon   string       `json:"icon,omitempty"`
	Scope  schema.Scope `json:"scope"`
	Index  int          `json:"index"`
	Fields []Field      `json:"fields"`
	// Empty is set when every field is hidden; Guidance then lists what
	// reveals them.
	Empty    bool                     `json:"empty,omitempty"`
	Guidance []visibility.Requirement `json:"guidance,omitempty"`
}

// Field describes one control.
type Field struct {
	// Key is the concrete key written on export; Property the configuration
	// key it came from.
	Key               string                 `json:"key"`
	Property          string                 `json:"property"`
	Label             string                 `json:"label"`
	Description       string                 `json:"description,omitempty"`
	Type              schema.FieldType       `json:"type"`
	Value             string                 `json:"value"`
	Checked           bool                   `json:"checked,omitempty"`
	BooleanType       schema.BooleanType     `json:"booleanType,omitempty"`
	Visible           bool                   `json:"visible"`
	Required          bool                   `json:"required,omitempty"`
	NeedsConfirmation bool                   `json:"needsConfirmation,omitempty"`
	Confirmed         bool                   `json:"confirmed,omitempty"`
	CheckService      bool                   `json:"checkService,omitempty"`
	Options           []schema.Option        `json:"options,omitempty"`
	Periods           []schema.PaymentPeriod `json:"periods,omitempty"`
	DependsOn         *schema.Dependency     `json:"dependsOn,omitempty"`
	Repeat            *Repeat                `json:"repeat,omitempty"`
}

// Repeat holds the instances of a repeatable property.
type Repeat struct {
	Source string `json:"source"`
	// Count is the raw count read from Source; Instances holds at most
	// MaxRepeat entries.
	Count     int     `json:"count"`
	Truncated bool    `json:"truncated,omitempty"`
	Instances []Field `json:"instances"`
}

// DomainTab is one entry of the domain switcher.
type DomainTab struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Build describes the session's current state.
func Build(s *session.Session) (Form, error) {
	if s == nil {
		return Form{}, fmt.Errorf("form: session is nil")
	}
	cfg := s.Configuration()
	b := builder{
		sess:   s,
		cfg:    cfg,
		state:  s.State(),
		values: s.Values(),
		active: s.ActiveDomain(),
	}

	f := Form{
		Title:          cfg.ProjectName,
		Description:    cfg.ProjectDescription,
		Version:        cfg.Version,
		OutputFileName: cfg.OutputFileName,
		ActiveDomain:   b.active,
	}

	for ci, category := range cfg.GlobalProperties {
		section, err := b.section(schema.ScopeGlobal, ci, category)
		if err != nil {
			return Form{}, err
		}
		f.Global = append(f.Global, section)
	}
	if b.active > 0 {
		for ci, category := range cfg.DomainProperties {
			section, err := b.section(schema.ScopeDomain, ci, category)
			if err != nil {
				return Form{}, err
			}
			f.Domain = append(f.Domain, section)
		}
	}
	for _, d := range s.Domains() {
		f.Domains = append(f.Domains, DomainTab{ID: d.ID, Name: d.Name, Active: d.ID == b.active})
	}

	pending, err := s.Unconfirmed()
	if err != nil {
		return Form{}, fmt.Errorf("form: %w", err)
	}
	f.Pending = len(pending)
	return f, nil
}

type builder struct {
	sess   *session.Session
	cfg    *schema.Configuration
	state  visibility.State
	values schema.Values
	active int
}

func (b builder) section(scope schema.Scope, index int, category schema.Category) (Section, error) {
	section := Section{
		Name:   category.Name,
		Icon:   category.Icon,
		Scope:  scope,
		Index:  index,
		Fields: make([]Field, 0, len(category.Properties)),
	}
	for _, prop := range category.Properties {
		field, err := b.field(scope, prop)
		if err != nil {
			return Section{}, err
		}
		section.Fields = append(section.Fields, field)
	}
	if empty, ok := b.state.CategoryEmpty(scope, index); ok {
		section.Empty = true
		section.Guidance = empty.Unmet
	}
	return section, nil
}

func (b builder) field(scope schema.Scope, prop schema.Property) (Field, error) {
	key := prop.Key
	if scope == schema.ScopeDomain {
		key = keytemplate.Expand(prop.Key, b.active)
	}

	f := Field{
		Key:         key,
		Property:    prop.Key,
		Label:       prop.Label,
		Description: prop.Description,
		Type:        prop.Type(),
		BooleanType: prop.BooleanType(),
		Visible:     b.state.Visible(prop.Key),
		Required:    prop.Required,
		DependsOn:   prop.DependsOn,
	}
	if f.Label == "" {
		f.Label = schema.LabelFromKey(prop.Key)
	}

	if prop.RepeatBasedOn != nil && prop.RepeatBasedOn.Key != "" {
		f.Repeat = b.repeat(prop)
		return f, nil
	}

	value, err := b.sess.Get(key)
	if err != nil {
		return Field{}, fmt.Errorf("form: %w", err)
	}
	f.Value = value
	b.confirmation(&f, prop)

	switch field := prop.Field.(type) {
	case schema.BooleanField:
		f.Checked = schema.Truthy(value)
	case schema.URLField:
		f.CheckService = field.CheckService
	case schema.SelectField:
		f.Options = append([]schema.Option(nil), field.Options...)
	case schema.DynamicSelectField:
		options, selected, err := b.sess.DynamicOptions(key)
		if err != nil {
			return Field{}, fmt.Errorf("form: %w", err)
		}
		for _, option := range options {
			f.Options = append(f.Options, schema.Option{Value: option, Label: option})
		}
		f.Value = selected
	case schema.MexicoStatesField:
		f.Options = b.cfg.MexicoStates
		if len(f.Options) == 0 {
			f.Options = schema.DefaultMexicoStates()
		}
	case schema.PaymentPeriodsField:
		periods := b.cfg.PaymentPeriods
		if len(periods) == 0 {
			periods = schema.DefaultPaymentPeriods()
		}
		for _, period := range periods {
			if period.Enabled {
				f.Periods = append(f.Periods, period)
			}
		}
	}
	return f, nil
}

func (b builder) repeat(prop schema.Property) *Repeat {
	count := properties.RepeatCount(b.cfg, b.values, prop)
	r := &Repeat{
		Source:    prop.RepeatBasedOn.Key,
		Count:     count,
		Truncated: count > MaxRepeat,
	}
	label := prop.RepeatBasedOn.Label
	if label == "" {
		label = prop.Label
	}
	for i := 1; i <= min(count, MaxRepeat); i++ {
		key := keytemplate.ExpandRepeat(prop.Key, prop.RepeatPlaceholder(), i)
		value, _ := b.sess.Get(key)
		instance := Field{
			Key:         key,
			Property:    prop.Key,
			Label:       fmt.Sprintf("%s %d", label, i),
			Description: prop.Description,
			Type:        prop.Type(),
			BooleanType: prop.BooleanType(),
			Value:       value,
			Visible:     b.state.Visible(prop.Key),
			Required:    prop.Required,
		}
		b.confirmation(&instance, prop)
		r.Instances = append(r.Instances, instance)
	}
	return r
}

func (b builder) confirmation(f *Field, prop schema.Property) {
	f.NeedsConfirmation = session.RequiresConfirmation(prop, f.Value)
	if f.NeedsConfirmation {
		f.Confirmed = b.sess.IsConfirmed(f.Key)
	}
}

// Lookup finds the field or repeat instance with the concrete key.
func (f Form) Lookup(key string) (Field, bool) {
	for _, sections := range [][]Section{f.Global, f.Domain} {
		for _, section := range sections {
			for _, field := range section.Fields {
				if field.Key == key {
					return field, true
				}
				if field.Repeat == nil {
					continue
				}
				for _, instance := range field.Repeat.Instances {
					if instance.Key == key {
						return instance, true
					}
				}
			}
		}
	}
	return Field{}, false
}
