package schema

import (
	"strings"

	"github.com/goliatone/go-propform/pkg/keytemplate"
)

// Scope tells whether a property lives in a global or a domain category.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeDomain
)

// Ref locates a property inside a configuration.
type Ref struct {
	Scope    Scope
	Category int
	Index    int
	Property Property
}

// Pattern returns the parsed domain key pattern, falling back to
// keytemplate.DefaultPattern.
func (c *Configuration) Pattern() keytemplate.Pattern {
	if c == nil || strings.TrimSpace(c.DomainKeyPattern) == "" {
		return keytemplate.ParsePattern(keytemplate.DefaultPattern)
	}
	return keytemplate.ParsePattern(c.DomainKeyPattern)
}

// FindProperty searches global categories first, then domain categories. In
// domain categories a key also matches the template with the placeholder
// replaced by "1", so concrete first-domain keys resolve to their template.
func (c *Configuration) FindProperty(key string) (Property, bool) {
	ref, ok := c.Locate(key)
	if !ok {
		return Property{}, false
	}
	return ref.Property, true
}

// Locate is FindProperty returning the property position as well.
func (c *Configuration) Locate(key string) (Ref, bool) {
	if c == nil || key == "" {
		return Ref{}, false
	}
	for ci, category := range c.GlobalProperties {
		for pi, prop := range category.Properties {
			if prop.Key == key {
				return Ref{Scope: ScopeGlobal, Category: ci, Index: pi, Property: prop}, true
			}
		}
	}
	for ci, category := range c.DomainProperties {
		for pi, prop := range category.Properties {
			if prop.Key == key || keytemplate.Expand(prop.Key, 1) == key {
				return Ref{Scope: ScopeDomain, Category: ci, Index: pi, Property: prop}, true
			}
		}
	}
	return Ref{}, false
}

// Default returns the default of the global property with exactly key.
func (c *Configuration) Default(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, category := range c.GlobalProperties {
		for _, prop := range category.Properties {
			if prop.Key == key {
				return prop.Default.String(), true
			}
		}
	}
	return "", false
}

// Walk calls fn for every property, global categories first. Returning false
// stops the walk.
func (c *Configuration) Walk(fn func(ref Ref) bool) {
	if c == nil {
		return
	}
	for ci, category := range c.GlobalProperties {
		for pi, prop := range category.Properties {
			if !fn(Ref{Scope: ScopeGlobal, Category: ci, Index: pi, Property: prop}) {
				return
			}
		}
	}
	for ci, category := range c.DomainProperties {
		for pi, prop := range category.Properties {
			if !fn(Ref{Scope: ScopeDomain, Category: ci, Index: pi, Property: prop}) {
				return
			}
		}
	}
}

// Categories returns the category slice for scope.
func (c *Configuration) Categories(scope Scope) []Category {
	if c == nil {
		return nil
	}
	if scope == ScopeDomain {
		return c.DomainProperties
	}
	return c.GlobalProperties
}

// Clone returns a deep copy so callers can patch defaults without touching the
// original.
func (c Configuration) Clone() Configuration {
	out := c
	out.GlobalProperties = cloneCategories(c.GlobalProperties)
	out.DomainProperties = cloneCategories(c.DomainProperties)
	out.MexicoStates = append([]Option(nil), c.MexicoStates...)
	out.PaymentPeriods = append([]PaymentPeriod(nil), c.PaymentPeriods...)
	return out
}

func cloneCategories(in []Category) []Category {
	if in == nil {
		return nil
	}
	out := make([]Category, len(in))
	for i, category := range in {
		out[i] = category
		out[i].Properties = make([]Property, len(category.Properties))
		for j, prop := range category.Properties {
			out[i].Properties[j] = prop.clone()
		}
	}
	return out
}

func (p Property) clone() Property {
	out := p
	out.Default = DefaultValue{text: p.Default.text, items: p.Default.Items(), list: p.Default.list}
	if p.DependsOn != nil {
		dep := *p.DependsOn
		out.DependsOn = &dep
	}
	if p.RepeatBasedOn != nil {
		rule := *p.RepeatBasedOn
		out.RepeatBasedOn = &rule
	}
	if p.DynamicOptionsFrom != nil {
		dyn := *p.DynamicOptionsFrom
		out.DynamicOptionsFrom = &dyn
	}
	if sel, ok := p.Field.(SelectField); ok {
		out.Field = SelectField{Options: append([]Option(nil), sel.Options...)}
	}
	return out
}
