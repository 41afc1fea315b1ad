package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-propform/pkg/form"
	"github.com/goliatone/go-propform/pkg/render"
	rendertemplate "github.com/goliatone/go-propform/pkg/render/template"
	gotemplate "github.com/goliatone/go-propform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-propform/pkg/renderers/vanilla/components"
	"github.com/goliatone/go-propform/pkg/schema"
)

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	registry         *components.Registry
	overrides        map[schema.FieldType]string
	classes          map[ChromeClass]string
}

// WithTemplatesFS supplies an alternate template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a template engine.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponentRegistry replaces the default component registry.
func WithComponentRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithComponent renders every field of type t with the named component.
func WithComponent(t schema.FieldType, name string) Option {
	return func(cfg *config) {
		if cfg.overrides == nil {
			cfg.overrides = make(map[schema.FieldType]string)
		}
		cfg.overrides[t] = name
	}
}

// WithClass appends extra CSS classes to a chrome element.
func WithClass(class ChromeClass, extra string) Option {
	return func(cfg *config) {
		if cfg.classes == nil {
			cfg.classes = make(map[ChromeClass]string)
		}
		cfg.classes[class] = sanitizeClassList(extra)
	}
}

// Renderer produces a server-rendered HTML form.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
	registry  *components.Registry
	overrides map[schema.FieldType]string
	classes   map[string]string
}

var _ render.Renderer = (*Renderer)(nil)

// New builds the renderer over the embedded templates unless overridden.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.registry == nil {
		cfg.registry = components.NewDefaultRegistry()
	}

	templates := cfg.templateRenderer
	if templates == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		templates = engine
	}

	classes := make(map[string]string)
	for class, value := range defaultClasses() {
		if extra := cfg.classes[class]; extra != "" {
			value += " " + extra
		}
		classes[string(class)] = value
	}

	return &Renderer{
		templates: templates,
		registry:  cfg.registry,
		overrides: cfg.overrides,
		classes:   classes,
	}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render writes the global sections, the domain tabs and the active domain's
// sections into one form element.
func (r *Renderer) Render(ctx context.Context, f form.Form, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cr := &componentRenderer{
		templates: r.templates,
		registry:  r.registry,
		partials:  render.DefaultPartials(),
		overrides: r.overrides,
		errors:    opts.Errors,
		classes:   r.classes,
		used:      make(map[string]struct{}),
	}
	if opts.Theme != nil {
		for key, value := range opts.Theme.Partials {
			cr.partials[key] = value
		}
	}

	global, err := r.sections(cr, "global", f.Global)
	if err != nil {
		return nil, err
	}
	domain, err := r.sections(cr, "domain", f.Domain)
	if err != nil {
		return nil, err
	}

	stylesheets, scripts := cr.assets()
	payload := map[string]any{
		"form":         f,
		"action":       opts.Action,
		"formErrors":   opts.FormErrors,
		"hidden":       render.SortedHiddenFields(opts.HiddenFields),
		"classes":      r.classes,
		"global":       global,
		"domain":       domain,
		"style":        render.StyleAttribute(opts.Theme),
		"stylesheets":  stylesheets,
		"scripts":      scripts,
		"inlineStyles": defaultStylesheet(),
	}
	if opts.Theme != nil && opts.Theme.AssetURL != nil {
		payload["stylesheet"] = opts.Theme.AssetURL(render.AssetStylesheet)
	}

	result, err := r.templates.RenderTemplate(cr.partial(render.PartialForm), payload)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func (r *Renderer) sections(cr *componentRenderer, scope string, sections []form.Section) (string, error) {
	var b strings.Builder
	for _, section := range sections {
		markup, err := cr.section(scope, section)
		if err != nil {
			return "", fmt.Errorf("vanilla renderer: render section %q: %w", section.Name, err)
		}
		b.WriteString(markup)
	}
	return b.String(), nil
}
