package properties

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-propform/pkg/keytemplate"
	"github.com/goliatone/go-propform/pkg/schema"
)

// TimestampLayout formats the generation time in the header.
const TimestampLayout = "2006-01-02 15:04:05"

// EncodeOptions tunes the generated text.
type EncodeOptions struct {
	// Title is the first header line.
	Title string
	// Now supplies the generation time.
	Now func() time.Time
	// DomainBanner prefixes the domain id in domain section banners.
	DomainBanner string
}

// EncodeOption mutates EncodeOptions.
type EncodeOption func(*EncodeOptions)

// WithTitle sets the header title.
func WithTitle(title string) EncodeOption {
	return func(o *EncodeOptions) {
		o.Title = title
	}
}

// WithClock sets the generation time source.
func WithClock(now func() time.Time) EncodeOption {
	return func(o *EncodeOptions) {
		o.Now = now
	}
}

// WithDomainBanner sets the word used in domain section banners.
func WithDomainBanner(word string) EncodeOption {
	return func(o *EncodeOptions) {
		o.DomainBanner = word
	}
}

func newEncodeOptions(opts []EncodeOption) EncodeOptions {
	o := EncodeOptions{
		Title:        "Configuration File",
		Now:          time.Now,
		DomainBanner: "DOMAIN",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Encode writes cfg with the values in snap as flat text. Global categories
// come first in declaration order, then one section per domain in ascending
// id order.
func Encode(w io.Writer, cfg *schema.Configuration, snap schema.Snapshot, opts ...EncodeOption) error {
	if cfg == nil {
		return fmt.Errorf("properties: configuration is nil")
	}
	o := newEncodeOptions(opts)
	e := &encoder{w: bufio.NewWriter(w), cfg: cfg, values: snap.Global}

	e.header(o)
	for _, category := range cfg.GlobalProperties {
		e.banner("-", 50, strings.ToUpper(category.Name))
		for _, prop := range category.Properties {
			e.global(prop)
		}
		e.line("")
	}

	for _, domain := range snap.SortedDomains() {
		e.banner("=", 50, o.DomainBanner+" "+strconv.Itoa(domain.ID))
		e.line("")
		for _, category := range cfg.DomainProperties {
			e.banner("-", 40, category.Name)
			for _, prop := range category.Properties {
				e.domain(prop, domain)
			}
			e.line("")
		}
	}

	if e.err != nil {
		return fmt.Errorf("properties: write: %w", e.err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("properties: flush: %w", err)
	}
	return nil
}

// EncodeString is Encode into a string.
func EncodeString(cfg *schema.Configuration, snap schema.Snapshot, opts ...EncodeOption) (string, error) {
	var b strings.Builder
	if err := Encode(&b, cfg, snap, opts...); err != nil {
		return "", err
	}
	return b.String(), nil
}

type encoder struct {
	w      *bufio.Writer
	cfg    *schema.Configuration
	values schema.Values
	err    error
}

func (e *encoder) line(s string) {
	if e.err != nil {
		return
	}
	if _, err := e.w.WriteString(s); err != nil {
		e.err = err
		return
	}
	e.err = e.w.WriteByte('\n')
}

func (e *encoder) header(o EncodeOptions) {
	rule := "# " + strings.Repeat("=", 44)
	e.line(rule)
	e.line("# " + o.Title)
	e.line("# Generated: " + o.Now().Format(TimestampLayout))
	e.line(rule)
	e.line("")
}

func (e *encoder) banner(char string, width int, title string) {
	rule := "# " + strings.Repeat(char, width)
	e.line(rule)
	e.line("# " + title)
	e.line(rule)
}

func (e *encoder) pair(key, value string) {
	e.line(key + "=" + value)
}

func (e *encoder) comment(text string) {
	if text != "" {
		e.line("# " + text)
	}
}

func (e *encoder) global(prop schema.Property) {
	switch {
	case prop.RepeatBasedOn != nil && prop.RepeatBasedOn.Key != "":
		count := RepeatCount(e.cfg, e.values, prop)
		for i := 1; i <= count; i++ {
			key := keytemplate.ExpandRepeat(prop.Key, prop.RepeatPlaceholder(), i)
			value, ok := e.values[key]
			if !ok {
				value = prop.Default.At(i)
			}
			e.comment(prop.Label + " " + strconv.Itoa(i))
			e.pair(key, value)
		}
	case prop.DynamicOptionsFrom != nil && prop.DynamicOptionsFrom.Key != "":
		e.comment(prop.Description)
		e.pair(prop.Key, DynamicValue(e.cfg, e.values, prop))
	default:
		value, ok := e.values[prop.Key]
		if !ok {
			value = prop.Default.String()
		}
		e.comment(prop.Description)
		e.pair(prop.Key, serialize(prop, value))
	}
}

func (e *encoder) domain(prop schema.Property, domain schema.DomainValues) {
	key := keytemplate.Expand(prop.Key, domain.ID)

	value, ok := domain.Properties[prop.Key]
	switch {
	case ok:
		value = serialize(prop, value)
	case prop.AutoFillDomainID:
		value = strconv.Itoa(domain.ID)
	default:
		value = serialize(prop, prop.Default.String())
	}
	e.comment(prop.Description)
	e.pair(key, value)
}

// serialize applies the boolean spelling to boolean properties. Empty boolean
// values are written as false.
func serialize(prop schema.Property, value string) string {
	bt := prop.BooleanType()
	if bt == "" {
		return value
	}
	if strings.TrimSpace(value) == "" {
		return bt.Off()
	}
	return bt.Format(schema.Truthy(value))
}

// RepeatCount is the raw number of repetitions for prop: the leading integer
// of the source value, never negative. No upper bound is applied here; the
// form layer caps what it renders.
func RepeatCount(cfg *schema.Configuration, values schema.Values, prop schema.Property) int {
	if prop.RepeatBasedOn == nil {
		return 0
	}
	raw, ok := values[prop.RepeatBasedOn.Key]
	if !ok {
		raw, _ = cfg.Default(prop.RepeatBasedOn.Key)
	}
	if n := schema.LeadingInt(raw); n > 0 {
		return n
	}
	return 0
}

// DynamicValue resolves the selection of a dynamic options property: the
// current value when it is among the options, otherwise the first option.
func DynamicValue(cfg *schema.Configuration, values schema.Values, prop schema.Property) string {
	current, ok := values[prop.Key]
	if !ok {
		current = prop.Default.String()
	}
	if prop.DynamicOptionsFrom == nil {
		return current
	}
	source, ok := values[prop.DynamicOptionsFrom.Key]
	if !ok {
		source, _ = cfg.Default(prop.DynamicOptionsFrom.Key)
	}
	return schema.Select(current, prop.DynamicOptionsFrom.Split(source))
}
