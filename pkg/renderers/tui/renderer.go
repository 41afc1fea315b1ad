package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-propform/pkg/form"
	"github.com/goliatone/go-propform/pkg/keytemplate"
	"github.com/goliatone/go-propform/pkg/render"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/session"
	"github.com/goliatone/go-propform/pkg/visibility"
)

const defaultMaxAttempts = 5

// Renderer walks a session in the terminal: every visible field is prompted in
// configuration order, global categories first and then each domain, and
// values that need a confirmation are confirmed right after entry. Render
// returns the exported file once the walk is done.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
	out          io.Writer
	maxAttempts  int
	logger       zerolog.Logger
	validate     *validator.Validate
}

var _ render.Renderer = (*Renderer)(nil)

// New builds a renderer using the survey driver unless overridden.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatProperties,
		out:          os.Stdout,
		maxAttempts:  defaultMaxAttempts,
		logger:       zerolog.Nop(),
		validate:     validator.New(),
		theme:        Theme{SectionPrefix: "== "},
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = &surveyDriver{out: r.out}
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the format Render returns.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatJSON:
		return "application/json"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "text/x-java-properties; charset=utf-8"
	}
}

// Render edits opts.Session interactively. f only supplies the banner; the
// walk reads the live session so answers that reveal fields or change the
// domain count take effect immediately.
func (r *Renderer) Render(ctx context.Context, f form.Form, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}
	sess := opts.Session
	if sess == nil {
		return nil, ErrSessionRequired
	}

	w := &walker{r: r, ctx: ctx, sess: sess, errors: opts.Errors}
	banner := f.Title
	if f.Version != "" {
		banner += " v" + f.Version
	}
	if err := w.info(r.theme.InfoPrefix + banner); err != nil {
		return nil, err
	}
	for _, message := range opts.FormErrors {
		if err := w.info(r.theme.InfoPrefix + message); err != nil {
			return nil, err
		}
	}

	cfg := sess.Configuration()
	for ci, category := range cfg.GlobalProperties {
		if err := w.category(schema.ScopeGlobal, ci, category, 0); err != nil {
			return nil, err
		}
	}

	active := sess.ActiveDomain()
	for id := 1; id <= len(sess.Domains()); id++ {
		if _, err := sess.SwitchDomain(id); err != nil {
			return nil, err
		}
		domain := sess.Domains()[id-1]
		if err := w.info(r.theme.SectionPrefix + domain.Name); err != nil {
			return nil, err
		}
		for ci, category := range cfg.DomainProperties {
			if err := w.category(schema.ScopeDomain, ci, category, id); err != nil {
				return nil, err
			}
		}
	}
	if active > 0 && active <= len(sess.Domains()) {
		if _, err := sess.SwitchDomain(active); err != nil {
			return nil, err
		}
	}

	return r.output(sess)
}

func (r *Renderer) output(sess *session.Session) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatJSON:
		return sess.ExportValues()
	case OutputFormatPrettyText:
		return prettySnapshot(sess.Snapshot()), nil
	default:
		var buf bytes.Buffer
		if err := sess.ExportProperties(&buf); err != nil {
			return nil, fmt.Errorf("tui: export: %w", err)
		}
		return buf.Bytes(), nil
	}
}

type walker struct {
	r      *Renderer
	ctx    context.Context
	sess   *session.Session
	errors map[string][]string
}

func (w *walker) info(msg string) error {
	return w.r.driver.Info(w.ctx, msg)
}

func (w *walker) category(scope schema.Scope, index int, category schema.Category, domainID int) error {
	if empty, ok := w.sess.State().CategoryEmpty(scope, index); ok {
		msg := category.Name + ": hidden"
		if len(empty.Unmet) > 0 {
			msg += " until " + requirementsText(empty.Unmet)
		}
		return w.info(w.r.theme.InfoPrefix + msg)
	}
	if err := w.info(w.r.theme.SectionPrefix + category.Name); err != nil {
		return err
	}

	for _, prop := range category.Properties {
		if !w.sess.State().Visible(prop.Key) || prop.AutoFillDomainID {
			continue
		}
		if prop.RepeatBasedOn != nil {
			if err := w.repeat(prop); err != nil {
				return err
			}
			continue
		}
		key := prop.Key
		if scope == schema.ScopeDomain {
			key = keytemplate.Expand(prop.Key, domainID)
		}
		if err := w.field(key); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) repeat(prop schema.Property) error {
	f, err := form.Build(w.sess)
	if err != nil {
		return err
	}
	parent, ok := f.Lookup(prop.Key)
	if !ok || parent.Repeat == nil {
		return nil
	}
	if parent.Repeat.Truncated {
		msg := fmt.Sprintf("%s: editing the first %d of %d entries", prop.Label, len(parent.Repeat.Instances), parent.Repeat.Count)
		if err := w.info(w.r.theme.InfoPrefix + msg); err != nil {
			return err
		}
	}
	for _, instance := range parent.Repeat.Instances {
		if err := w.field(instance.Key); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) field(key string) error {
	for attempt := 0; attempt < w.r.maxAttempts; attempt++ {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		f, err := form.Build(w.sess)
		if err != nil {
			return err
		}
		field, ok := f.Lookup(key)
		if !ok {
			return fmt.Errorf("tui: field %q not in form", key)
		}
		if !field.Visible {
			return nil
		}
		if attempt == 0 {
			for _, message := range w.errors[key] {
				if err := w.info(w.r.theme.InfoPrefix + field.Label + ": " + message); err != nil {
					return err
				}
			}
		}

		value, err := w.ask(field)
		if err != nil {
			return err
		}
		if check := w.r.validatorFor(field); check != nil {
			if verr := check(value); verr != nil {
				if err := w.info(w.r.theme.InfoPrefix + verr.Error()); err != nil {
					return err
				}
				continue
			}
		}
		if _, err := w.sess.Set(key, value); err != nil {
			return err
		}

		needs, err := w.sess.NeedsConfirmation(key)
		if err != nil {
			return err
		}
		if !needs || w.sess.IsConfirmed(key) {
			return nil
		}
		ok, err = w.r.driver.Confirm(w.ctx, ConfirmConfig{
			Message: fmt.Sprintf("Confirm %s = %s?", field.Label, displayValue(field.Type, value)),
			Default: true,
		})
		if err != nil {
			return err
		}
		if ok {
			return w.sess.Confirm(key, value)
		}
		w.r.logger.Debug().Str("key", key).Msg("confirmation declined, asking again")
	}
	return fmt.Errorf("%w: %s", ErrTooManyAttempts, key)
}

func (w *walker) ask(field form.Field) (string, error) {
	d := w.r.driver
	switch field.Type {
	case schema.TypeBoolean:
		v, err := d.Confirm(w.ctx, ConfirmConfig{Message: field.Label, Default: field.Checked, Help: field.Description})
		if err != nil {
			return "", err
		}
		return field.BooleanType.Format(v), nil
	case schema.TypePassword:
		return d.Password(w.ctx, InputConfig{Message: field.Label, Default: field.Value, Help: field.Description})
	case schema.TypeHTML:
		return d.TextArea(w.ctx, TextAreaConfig{Message: field.Label, Default: field.Value, Help: field.Description})
	}

	if choices := choicesOf(field); len(choices) > 0 {
		labels := make([]string, len(choices))
		current := 0
		for i, choice := range choices {
			labels[i] = choice.Label
			if labels[i] == "" {
				labels[i] = choice.Value
			}
			if choice.Value == field.Value {
				current = i
			}
		}
		idx, err := d.Select(w.ctx, SelectConfig{Message: field.Label, Options: labels, DefaultIndex: current, Help: field.Description, PageSize: 12})
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(choices) {
			return field.Value, nil
		}
		return choices[idx].Value, nil
	}

	return d.Input(w.ctx, InputConfig{
		Message:   field.Label,
		Default:   field.Value,
		Help:      field.Description,
		Validator: w.r.validatorFor(field),
	})
}

// validatorFor returns the go-playground rule check for a field, or nil when
// any answer is acceptable.
func (r *Renderer) validatorFor(field form.Field) func(string) error {
	var rule string
	switch field.Type {
	case schema.TypeNumber:
		rule = "numeric"
	case schema.TypeURL:
		rule = "url"
	}
	prefix := "omitempty"
	if field.Required {
		prefix = "required"
	}
	if rule == "" && prefix == "omitempty" {
		return nil
	}
	tag := prefix
	if rule != "" {
		tag += "," + rule
	}
	return func(value string) error {
		if err := r.validate.Var(strings.TrimSpace(value), tag); err != nil {
			return fmt.Errorf("%s: expected a valid %s value", field.Label, describeRule(rule, field.Required))
		}
		return nil
	}
}

func describeRule(rule string, required bool) string {
	switch {
	case rule == "numeric":
		return "number"
	case rule == "url":
		return "URL"
	case required:
		return "non-empty"
	default:
		return "text"
	}
}

func choicesOf(field form.Field) []schema.Option {
	if field.Type == schema.TypePaymentPeriods {
		out := make([]schema.Option, 0, len(field.Periods))
		for _, period := range field.Periods {
			out = append(out, schema.Option{Value: period.Value, Label: period.Label})
		}
		return out
	}
	return field.Options
}

func displayValue(t schema.FieldType, value string) string {
	if t == schema.TypePassword {
		return strings.Repeat("*", len(value))
	}
	if value == "" {
		return `""`
	}
	return value
}

func requirementsText(reqs []visibility.Requirement) string {
	parts := make([]string, 0, len(reqs))
	for _, req := range reqs {
		parts = append(parts, fmt.Sprintf("%s is %s", req.Label, strings.Join(req.Values, " or ")))
	}
	return strings.Join(parts, " and ")
}

func prettySnapshot(snap schema.Snapshot) []byte {
	var b bytes.Buffer
	keys := make([]string, 0, len(snap.Global))
	for key := range snap.Global {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s = %s\n", key, snap.Global[key])
	}
	for _, d := range snap.SortedDomains() {
		fmt.Fprintf(&b, "\n[%s]\n", d.Name)
		keys = keys[:0]
		for key := range d.Properties {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "%s = %s\n", keytemplate.Expand(key, d.ID), d.Properties[key])
		}
	}
	return b.Bytes()
}
