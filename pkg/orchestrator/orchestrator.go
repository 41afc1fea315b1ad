package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	theme "github.com/goliatone/go-theme"
	"github.com/rs/zerolog"

	internalLoader "github.com/goliatone/go-propform/internal/schema/loader"
	"github.com/goliatone/go-propform/pkg/form"
	"github.com/goliatone/go-propform/pkg/render"
	"github.com/goliatone/go-propform/pkg/renderers/vanilla"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/session"
)

const defaultRendererName = "vanilla"

// ThemeSelector resolves a theme and variant. render.ManifestSelector and
// go-theme selectors satisfy it.
type ThemeSelector interface {
	Select(name, variant string, opts ...theme.QueryOption) (*theme.Selection, error)
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom schema loader.
func WithLoader(loader schema.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits one.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithSchemaTransformer registers a Transformer that patches the parsed
// configuration before the session opens.
func WithSchemaTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithThemeSelector sets the selector used to resolve request themes.
func WithThemeSelector(selector ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
	}
}

// WithThemeFallbacks sets the partials used when a theme omits one.
func WithThemeFallbacks(fallbacks map[string]string) Option {
	return func(o *Orchestrator) {
		o.themeFallbacks = fallbacks
	}
}

// WithSessionOptions forwards options to every session the orchestrator
// opens.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *Orchestrator) {
		o.sessionOptions = append(o.sessionOptions, opts...)
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// Orchestrator coordinates the pipeline from schema document to rendered
// output, defaulting to the file loader, the vanilla renderer and the built-in
// theme.
type Orchestrator struct {
	loader          schema.Loader
	registry        *render.Registry
	defaultRenderer string
	transformer     Transformer
	themeSelector   ThemeSelector
	themeFallbacks  map[string]string
	sessionOptions  []session.Option
	logger          zerolog.Logger
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one render.
type Request struct {
	// Source identifies the schema document. Optional when Document or
	// Session is set.
	Source schema.Source

	// Document bypasses the loader.
	Document *schema.Document

	// Session renders an already open session; Source, Document and the
	// value payloads are ignored.
	Session *session.Session

	// Values is a saved JSON values document applied after opening.
	Values []byte

	// Properties is a saved flat-text file applied after opening.
	Properties []byte

	// Renderer names the renderer; empty uses the default.
	Renderer string

	ThemeName    string
	ThemeVariant string

	RenderOptions render.RenderOptions
}

// Open returns the session for req, loading and parsing the document when
// the request does not carry a session.
func (o *Orchestrator) Open(ctx context.Context, req Request) (*session.Session, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}
	if req.Session != nil {
		return req.Session, nil
	}

	doc, err := o.resolveDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	cfg, err := doc.Configuration()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: parse document: %w", err)
	}
	if o.transformer != nil {
		if err := o.transformer.Transform(ctx, &cfg); err != nil {
			return nil, fmt.Errorf("orchestrator: transform configuration: %w", err)
		}
	}

	opts := append([]session.Option{session.WithDocument(doc.Raw())}, o.sessionOptions...)
	sess, err := session.New(&cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open session: %w", err)
	}

	if len(bytes.TrimSpace(req.Values)) > 0 {
		if _, err := sess.ImportValues(req.Values); err != nil {
			return nil, fmt.Errorf("orchestrator: import values: %w", err)
		}
	}
	if len(bytes.TrimSpace(req.Properties)) > 0 {
		if _, err := sess.ImportProperties(bytes.NewReader(req.Properties)); err != nil {
			return nil, fmt.Errorf("orchestrator: import properties: %w", err)
		}
	}

	o.logger.Debug().
		Str("location", doc.Location()).
		Int("domains", len(sess.Domains())).
		Msg("session opened")
	return sess, nil
}

// Generate opens the session, builds the form and renders it.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	sess, err := o.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.Render(ctx, sess, req)
}

// Render builds the form for sess and renders it with the request's renderer
// and theme.
func (o *Orchestrator) Render(ctx context.Context, sess *session.Session, req Request) ([]byte, error) {
	if sess == nil {
		return nil, errors.New("orchestrator: session is required")
	}

	f, err := form.Build(sess)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build form: %w", err)
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}

	options := req.RenderOptions
	options.Session = sess
	if options.Theme == nil {
		cfg, err := o.themeConfig(req.ThemeName, req.ThemeVariant)
		if err != nil {
			return nil, err
		}
		options.Theme = cfg
	}

	output, err := renderer.Render(ctx, f, options)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// Renderer returns the named renderer, or the default when name is empty.
func (o *Orchestrator) Renderer(name string) (render.Renderer, error) {
	return o.rendererFor(name)
}

func (o *Orchestrator) resolveDocument(ctx context.Context, req Request) (schema.Document, error) {
	if req.Document != nil {
		return *req.Document, nil
	}
	if req.Source == nil {
		return schema.Document{}, errors.New("orchestrator: source or document is required")
	}
	doc, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return schema.Document{}, fmt.Errorf("orchestrator: load document: %w", err)
	}
	return doc, nil
}

func (o *Orchestrator) themeConfig(name, variant string) (*theme.RendererConfig, error) {
	if o.themeSelector == nil {
		return nil, nil
	}
	selection, err := o.themeSelector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: select theme: %w", err)
	}
	return render.ThemeConfig(selection, o.themeFallbacks), nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}
	renderer, err := o.registry.Resolve(name, o.defaultRenderer)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.loader == nil {
		o.loader = internalLoader.New(schema.NewLoaderOptions())
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
	if o.themeSelector == nil {
		selector, err := render.NewManifestSelector()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default theme: %w", err)
		} else {
			o.themeSelector = selector
		}
	}
	if o.themeFallbacks == nil {
		o.themeFallbacks = render.DefaultPartials()
	}
}
