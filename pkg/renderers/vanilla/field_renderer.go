package vanilla

import (
	"bytes"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/goliatone/go-propform/pkg/form"
	"github.com/goliatone/go-propform/pkg/render"
	"github.com/goliatone/go-propform/pkg/render/template"
	"github.com/goliatone/go-propform/pkg/renderers/vanilla/components"
	"github.com/goliatone/go-propform/pkg/schema"
)

type componentRenderer struct {
	templates template.TemplateRenderer
	registry  *components.Registry
	partials  map[string]string
	overrides map[schema.FieldType]string
	errors    map[string][]string
	classes   map[string]string

	used map[string]struct{}
}

func (r *componentRenderer) section(scope string, section form.Section) (string, error) {
	var fields strings.Builder
	for _, field := range section.Fields {
		if field.Repeat != nil {
			markup, err := r.repeat(field)
			if err != nil {
				return "", err
			}
			fields.WriteString(markup)
			continue
		}
		markup, err := r.field(field)
		if err != nil {
			return "", err
		}
		fields.WriteString(markup)
	}

	return r.templates.RenderTemplate(r.partial(render.PartialSection), map[string]any{
		"section": section,
		"scope":   scope,
		"fields":  fields.String(),
		"classes": r.classes,
	})
}

func (r *componentRenderer) repeat(field form.Field) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="propform-repeat" data-repeat="%s" data-repeat-source="%s"`, html.EscapeString(field.Property), html.EscapeString(field.Repeat.Source))
	if !field.Visible {
		b.WriteString(" hidden")
	}
	b.WriteString(">\n")
	for _, instance := range field.Repeat.Instances {
		markup, err := r.field(instance)
		if err != nil {
			return "", err
		}
		b.WriteString(markup)
	}
	if field.Repeat.Truncated {
		fmt.Fprintf(&b, "<p class=\"propform-help\">Showing %d of %d entries.</p>\n", len(field.Repeat.Instances), field.Repeat.Count)
	}
	b.WriteString("</div>\n")
	return b.String(), nil
}

func (r *componentRenderer) field(field form.Field) (string, error) {
	name := r.overrides[field.Type]
	if name == "" {
		name = components.ForType(field.Type)
	}
	descriptor, ok := r.registry.Descriptor(name)
	if !ok {
		return "", fmt.Errorf("component %q not registered for field %q", name, field.Key)
	}

	view := r.view(field)
	var control bytes.Buffer
	if err := descriptor.Renderer(&control, view, components.ComponentData{
		Template:      r.templates,
		ThemePartials: r.partials,
	}); err != nil {
		return "", fmt.Errorf("render component %q for field %q: %w", name, field.Key, err)
	}
	r.used[name] = struct{}{}

	return r.templates.RenderTemplate(r.partial(render.PartialField), map[string]any{
		"field":   view,
		"control": control.String(),
	})
}

func (r *componentRenderer) view(field form.Field) components.Field {
	view := components.Field{
		Field:     field,
		ID:        controlID(field.Key),
		InputType: components.InputType(field.Type),
		Errors:    r.errors[field.Key],
	}
	switch field.Type {
	case schema.TypeBoolean:
		view.On = field.BooleanType.Format(true)
		view.Off = field.BooleanType.Format(false)
	case schema.TypeHTML:
		view.Preview = sanitizePreview(field.Value)
	case schema.TypePaymentPeriods:
		for _, period := range field.Periods {
			view.Choices = append(view.Choices, schema.Option{Value: period.Value, Label: period.Label})
		}
	default:
		view.Choices = field.Options
	}
	return view
}

func (r *componentRenderer) partial(key string) string {
	if name := strings.TrimSpace(r.partials[key]); name != "" {
		return name
	}
	return render.DefaultPartials()[key]
}

func (r *componentRenderer) assets() ([]string, []components.Script) {
	names := make([]string, 0, len(r.used))
	for name := range r.used {
		names = append(names, name)
	}
	slices.Sort(names)
	return r.registry.Assets(names)
}
