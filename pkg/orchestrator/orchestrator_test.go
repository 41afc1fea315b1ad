package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-propform/pkg/form"
	"github.com/goliatone/go-propform/pkg/render"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/testsupport"
)

type captureRenderer struct {
	form    form.Form
	options render.RenderOptions
	calls   int
}

func (r *captureRenderer) Name() string        { return "capture" }
func (r *captureRenderer) ContentType() string { return "text/plain" }

func (r *captureRenderer) Render(_ context.Context, f form.Form, options render.RenderOptions) ([]byte, error) {
	r.calls++
	r.form = f
	r.options = options
	return []byte("rendered:" + f.Title), nil
}

type selectorCall struct {
	name    string
	variant string
}

type stubThemeSelector struct {
	selection *theme.Selection
	err       error
	calls     []selectorCall
}

func (s *stubThemeSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, selectorCall{name: name, variant: variant})
	return s.selection, s.err
}

func portalDocument(t *testing.T) *schema.Document {
	t.Helper()
	doc := schema.MustNewDocument(schema.SourceFromFile("portal.json"), testsupport.PortalDocument())
	return &doc
}

func newCaptureOrchestrator(opts ...Option) (*Orchestrator, *captureRenderer) {
	renderer := &captureRenderer{}
	registry := render.NewRegistry()
	registry.MustRegister(renderer)
	base := []Option{WithRegistry(registry), WithDefaultRenderer(renderer.Name())}
	return New(append(base, opts...)...), renderer
}

func TestOrchestrator_GenerateFromDocument(t *testing.T) {
	t.Parallel()

	orch, renderer := newCaptureOrchestrator()
	out, err := orch.Generate(context.Background(), Request{Document: portalDocument(t)})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(out) != "rendered:Signing Portal" {
		t.Fatalf("unexpected output %q", out)
	}
	if renderer.options.Session == nil {
		t.Fatal("expected session passed to renderer")
	}
	if renderer.options.Theme == nil || renderer.options.Theme.Theme != render.DefaultThemeName {
		t.Fatalf("expected default theme, got %+v", renderer.options.Theme)
	}
	if len(renderer.form.Domains) != 2 {
		t.Fatalf("expected 2 domain tabs, got %d", len(renderer.form.Domains))
	}
}

func TestOrchestrator_LoadsFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"schemas/portal.json": {Data: testsupport.PortalDocument()}}
	orch, renderer := newCaptureOrchestrator(
		WithLoader(loaderFor(fsys)),
	)
	if _, err := orch.Generate(context.Background(), Request{Source: schema.SourceFromFS("schemas/portal.json")}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if renderer.calls != 1 {
		t.Fatalf("expected one render, got %d", renderer.calls)
	}
}

func TestOrchestrator_AppliesValuesAndProperties(t *testing.T) {
	t.Parallel()

	orch, _ := newCaptureOrchestrator()
	sess, err := orch.Open(context.Background(), Request{
		Document:   portalDocument(t),
		Properties: []byte("portal.domains.total=3\nportal.domain3.name=gamma\n"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := len(sess.Domains()); got != 3 {
		t.Fatalf("expected 3 domains, got %d", got)
	}
	if _, err := sess.SwitchDomain(3); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if got, _ := sess.Get("portal.domain3.name"); got != "gamma" {
		t.Fatalf("domain3 name = %q", got)
	}
}

func TestOrchestrator_PassesThemeConfigToRenderer(t *testing.T) {
	t.Parallel()

	manifest := &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens:  map[string]string{"brand": "#123456"},
	}
	selector := &stubThemeSelector{selection: &theme.Selection{Theme: "acme", Variant: "dark", Manifest: manifest}}

	orch, renderer := newCaptureOrchestrator(WithThemeSelector(selector))
	_, err := orch.Generate(context.Background(), Request{
		Document:     portalDocument(t),
		ThemeName:    "acme",
		ThemeVariant: "dark",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(selector.calls) != 1 || selector.calls[0] != (selectorCall{name: "acme", variant: "dark"}) {
		t.Fatalf("unexpected selector calls: %+v", selector.calls)
	}
	cfg := renderer.options.Theme
	if cfg == nil || cfg.Theme != "acme" || cfg.Variant != "dark" {
		t.Fatalf("unexpected theme config %+v", cfg)
	}
	if got := cfg.Partials[render.PartialField]; got != render.DefaultPartials()[render.PartialField] {
		t.Fatalf("partials not merged with fallbacks: %q", got)
	}
	if cfg.CSSVars["--brand"] != "#123456" {
		t.Fatalf("css vars not derived from tokens: %+v", cfg.CSSVars)
	}
}

func TestOrchestrator_ThemeErrors(t *testing.T) {
	t.Parallel()

	orch, renderer := newCaptureOrchestrator(WithThemeSelector(&stubThemeSelector{err: render.ErrThemeNotFound}))
	_, err := orch.Generate(context.Background(), Request{Document: portalDocument(t), ThemeName: "missing"})
	if !errors.Is(err, render.ErrThemeNotFound) {
		t.Fatalf("expected ErrThemeNotFound, got %v", err)
	}
	if renderer.calls != 0 {
		t.Fatal("renderer should not run after a theme error")
	}
}

func TestOrchestrator_Errors(t *testing.T) {
	t.Parallel()

	orch, _ := newCaptureOrchestrator()

	if _, err := orch.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error without source")
	}
	if _, err := orch.Generate(context.Background(), Request{Document: portalDocument(t), Renderer: "missing"}); err == nil {
		t.Fatal("expected unknown renderer error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := orch.Generate(ctx, Request{Document: portalDocument(t)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	bad := schema.MustNewDocument(schema.SourceFromFile("bad.json"), []byte(`{"globalProperties": 3}`))
	if _, err := orch.Generate(context.Background(), Request{Document: &bad}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOrchestrator_DefaultVanillaRenderer(t *testing.T) {
	t.Parallel()

	out, err := New().Generate(context.Background(), Request{Document: portalDocument(t)})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	html := string(out)
	for _, want := range []string{"Signing Portal", `data-key="portal.url"`, "--color-bg"} {
		if !strings.Contains(html, want) {
			t.Fatalf("vanilla output missing %q", want)
		}
	}
}

func TestOrchestrator_SchemaTransformer(t *testing.T) {
	t.Parallel()

	preset, err := NewJSONPresetTransformer([]byte(`{
		"projectName": "Tenant Portal",
		"properties": {
			"portal.url": {"label": "Public URL", "default": "https://tenant.example.com"},
			"portal.domain{N}.name": {"needsConfirmation": false}
		}
	}`))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}

	orch, renderer := newCaptureOrchestrator(WithSchemaTransformer(preset))
	if _, err := orch.Generate(context.Background(), Request{Document: portalDocument(t)}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if renderer.form.Title != "Tenant Portal" {
		t.Fatalf("title = %q", renderer.form.Title)
	}
	field, ok := renderer.form.Lookup("portal.url")
	if !ok || field.Label != "Public URL" || field.Value != "https://tenant.example.com" {
		t.Fatalf("preset not applied: %+v", field)
	}
	name, ok := renderer.form.Lookup("portal.domain1.name")
	if !ok || name.NeedsConfirmation {
		t.Fatalf("domain preset not applied: %+v", name)
	}
}

func TestJSONPresetTransformer_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewJSONPresetTransformer(nil); err == nil {
		t.Fatal("expected empty document error")
	}
	if _, err := NewJSONPresetTransformer([]byte("{")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := NewJSONPresetTransformerFromFS(fstest.MapFS{}, "presets.json"); err == nil {
		t.Fatal("expected missing file error")
	}

	preset, err := NewJSONPresetTransformer([]byte(`{"properties": {"nope": {"label": "x"}}}`))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	cfg := testsupport.PortalConfiguration(t)
	if err := preset.Transform(context.Background(), &cfg); err == nil {
		t.Fatal("expected unknown property error")
	}
}
