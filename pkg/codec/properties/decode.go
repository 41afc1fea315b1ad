package properties

import (
	"io"
	"path"
	"strings"

	"github.com/goliatone/go-propform/pkg/keytemplate"
	"github.com/goliatone/go-propform/pkg/schema"
)

const (
	defaultCategory       = "General"
	defaultVersion        = "1.0.0"
	defaultOutputFileName = "config.properties"
)

// DecodeOptions tunes schema inference.
type DecodeOptions struct {
	// Pattern is the domain key pattern; keytemplate.DefaultPattern when empty.
	Pattern string
	// FileName seeds the project name and output file name.
	FileName string
	// DomainLabel replaces concrete domain segments in domain category names.
	DomainLabel string
	// GlobalFallback and DomainFallback name the placeholder categories
	// emitted when a side has no properties.
	GlobalFallback string
	DomainFallback string
	// DescriptionPrefix prefixes the generated property descriptions.
	DescriptionPrefix string
}

// DecodeOption mutates DecodeOptions.
type DecodeOption func(*DecodeOptions)

// WithPattern sets the domain key pattern.
func WithPattern(pattern string) DecodeOption {
	return func(o *DecodeOptions) {
		o.Pattern = pattern
	}
}

// WithFileName sets the source file name.
func WithFileName(name string) DecodeOption {
	return func(o *DecodeOptions) {
		o.FileName = name
	}
}

// WithDomainLabel sets the word used for domain categories.
func WithDomainLabel(label string) DecodeOption {
	return func(o *DecodeOptions) {
		o.DomainLabel = label
	}
}

func newDecodeOptions(opts []DecodeOption) DecodeOptions {
	o := DecodeOptions{
		Pattern:           keytemplate.DefaultPattern,
		DomainLabel:       "Domain",
		GlobalFallback:    "General Properties",
		DomainFallback:    "Domain Configuration",
		DescriptionPrefix: "Imported property: ",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if strings.TrimSpace(o.Pattern) == "" {
		o.Pattern = keytemplate.DefaultPattern
	}
	return o
}

// Decode infers a configuration from flat text.
func Decode(r io.Reader, opts ...DecodeOption) (schema.Configuration, error) {
	entries, err := Parse(r)
	if err != nil {
		return schema.Configuration{}, err
	}
	return FromEntries(entries, opts...), nil
}

// FromEntries infers a configuration from parsed entries. A repeated key keeps
// its first position and its last value.
func FromEntries(entries []Entry, opts ...DecodeOption) schema.Configuration {
	o := newDecodeOptions(opts)
	pattern := keytemplate.ParsePattern(o.Pattern)

	type group struct {
		idx   int
		name  string
		props []schema.Property
	}
	var (
		groups   []*group
		byName   = make(map[string]*group)
		position = make(map[string][2]int)
	)

	for _, entry := range entries {
		if pos, seen := position[entry.Key]; seen {
			g := groups[pos[0]]
			g.props[pos[1]] = inferProperty(entry, o)
			continue
		}
		name := categoryOf(entry.Key)
		g, ok := byName[name]
		if !ok {
			g = &group{idx: len(groups), name: name}
			byName[name] = g
			groups = append(groups, g)
		}
		g.props = append(g.props, inferProperty(entry, o))
		position[entry.Key] = [2]int{g.idx, len(g.props) - 1}
	}

	var global, domain []schema.Category
	domainIdx := make(map[string]int)
	domainSeen := make(map[string]struct{})
	for _, g := range groups {
		if !hasDomainKey(g.props, pattern) {
			global = append(global, schema.Category{
				Name:       schema.CategoryName(g.name),
				Icon:       "settings",
				Properties: g.props,
			})
			continue
		}

		// domain1 and domain2 groups collapse into one templated category
		name := schema.CategoryName(pattern.ReplaceAll(g.name, o.DomainLabel))
		idx, ok := domainIdx[name]
		if !ok {
			idx = len(domain)
			domainIdx[name] = idx
			domain = append(domain, schema.Category{
				Name:       name,
				Icon:       "server",
				IsDomain:   true,
				Properties: []schema.Property{},
			})
		}
		for _, prop := range g.props {
			prop.Key = pattern.ToTemplate(prop.Key)
			if _, dup := domainSeen[prop.Key]; dup {
				continue
			}
			domainSeen[prop.Key] = struct{}{}
			domain[idx].Properties = append(domain[idx].Properties, prop)
		}
	}

	if len(global) == 0 {
		global = []schema.Category{{Name: o.GlobalFallback, Icon: "settings", Properties: []schema.Property{}}}
	}
	if len(domain) == 0 {
		domain = []schema.Category{{Name: o.DomainFallback, IsDomain: true, Properties: []schema.Property{}}}
	}

	cfg := schema.Configuration{
		ProjectName:      projectName(o.FileName),
		Version:          defaultVersion,
		OutputFileName:   defaultOutputFileName,
		DomainKeyPattern: o.Pattern,
		GlobalProperties: global,
		DomainProperties: domain,
		MexicoStates:     schema.DefaultMexicoStates(),
		PaymentPeriods:   schema.DefaultPaymentPeriods(),
	}
	if o.FileName != "" {
		cfg.OutputFileName = path.Base(o.FileName)
		cfg.ProjectDescription = "Imported from " + path.Base(o.FileName)
	}
	return cfg
}

func inferProperty(entry Entry, o DecodeOptions) schema.Property {
	typ, boolType := InferType(entry.Value)

	var field schema.Field
	switch typ {
	case schema.TypeBoolean:
		field = schema.BooleanField{BooleanType: boolType}
	case schema.TypeNumber:
		field = schema.NumberField{}
	case schema.TypeURL:
		field = schema.URLField{CheckService: true}
	case schema.TypeHTML:
		field = schema.HTMLField{}
	default:
		field = schema.TextField{}
	}

	return schema.Property{
		Key:               entry.Key,
		Label:             schema.LabelFromKey(entry.Key),
		Field:             field,
		Default:           schema.StringDefault(entry.Value),
		NeedsConfirmation: typ == schema.TypeText || typ == schema.TypeURL,
		Description:       o.DescriptionPrefix + entry.Key,
	}
}

// categoryOf returns the first two dot segments of key, or "General".
func categoryOf(key string) string {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return defaultCategory
	}
	return parts[0] + "." + parts[1]
}

func hasDomainKey(props []schema.Property, pattern keytemplate.Pattern) bool {
	for _, prop := range props {
		if pattern.Matches(prop.Key) {
			return true
		}
	}
	return false
}

func projectName(fileName string) string {
	if fileName == "" {
		return "Imported Configuration"
	}
	name := strings.TrimSuffix(path.Base(fileName), ".properties")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	if name == "" {
		return "Imported Configuration"
	}
	r := []rune(name)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
