package vanilla_test

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-propform/pkg/form"
	"github.com/goliatone/go-propform/pkg/render"
	"github.com/goliatone/go-propform/pkg/renderers/vanilla"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/session"
	"github.com/goliatone/go-propform/pkg/testsupport"
)

func renderPortal(t *testing.T, opts render.RenderOptions, sessOpts ...session.Option) string {
	t.Helper()

	sess := testsupport.PortalSession(t, sessOpts...)
	f, err := form.Build(sess)
	if err != nil {
		t.Fatalf("build form: %v", err)
	}
	renderer, err := vanilla.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := renderer.Render(context.Background(), f, opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, html string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(html, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, html)
		}
	}
}

func TestRenderer_PortalForm(t *testing.T) {
	t.Parallel()

	html := renderPortal(t, render.RenderOptions{Action: "/forms/portal"})

	assertContains(t, html,
		`action="/forms/portal"`,
		`<h1>Signing Portal</h1>`,
		`data-key="portal.url"`,
		`data-depends-on="portal.enabled"`,
		`name="portal.enabled" type="checkbox" value="true" checked`,
		`name="mail.enabled" value="0"`,
		`type="url" value="https://portal.example.com"`,
		`data-check-service`,
		`name="_confirm" value="portal.url"`,
		`data-key="portal.domain1.name"`,
		`id="pf-portal-domain1-name"`,
		`<option value="basic" selected>Basic</option>`,
		`data-repeat="portal.mirror[N].host"`,
		`value="m2.example.com"`,
		`aria-current="page">Domain 1</button>`,
		`data-active-domain="1"`,
		`name="_domain" value="1"`,
		`name="_domain" value="2"`,
		`4 field(s) need confirmation`,
		`<script src="/assets/propform.js" defer></script>`,
		`<style>`,
	)
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Fatalf("html preview was not sanitized")
	}
	assertContains(t, html, `<div class="propform-preview" aria-live="polite"><p>Hello <b>team</b></p></div>`)
	if strings.Contains(html, ".000000") {
		t.Fatalf("integers rendered as floats:\n%s", html)
	}
}

func TestRenderer_HiddenCategoryGuidance(t *testing.T) {
	t.Parallel()

	html := renderPortal(t, render.RenderOptions{})
	assertContains(t, html,
		`data-category="Mail server"`,
		`All settings in this category are hidden.`,
		`Set <strong>Mail enabled</strong> to true`,
		`data-key="mail.host" data-type="text" data-depends-on="mail.enabled" data-depends-value="true" hidden`,
	)
}

func TestRenderer_ErrorsAndTheme(t *testing.T) {
	t.Parallel()

	selector, err := render.NewManifestSelector()
	if err != nil {
		t.Fatalf("selector: %v", err)
	}
	selection, err := selector.Select(render.DefaultThemeName, "dark")
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	html := renderPortal(t, render.RenderOptions{
		Theme:      render.ThemeConfig(selection, render.DefaultPartials()),
		Errors:     map[string][]string{"portal.url": {"URL unreachable"}},
		FormErrors: []string{"Fix the highlighted fields"},
	})
	assertContains(t, html,
		`<link rel="stylesheet" href="/assets/propform.css">`,
		`--color-bg: #111827;`,
		`<p class="propform-error" role="alert">URL unreachable</p>`,
		`<li>Fix the highlighted fields</li>`,
	)
}

func TestRenderer_HiddenFields(t *testing.T) {
	t.Parallel()

	html := renderPortal(t, render.RenderOptions{
		HiddenFields: render.MergeHiddenFields(nil,
			render.VersionField("2.1.0"),
			render.Hidden("_note", `"><b>`),
		),
	})
	assertContains(t, html,
		`<input type="hidden" name="_note" value="&quot;&gt;&lt;b&gt;">`,
		`<input type="hidden" name="_version" value="2.1.0">`,
	)
}

func TestRenderer_EscapesValues(t *testing.T) {
	t.Parallel()

	sess := testsupport.PortalSession(t)
	if _, err := sess.Set("portal.languages", `es,"><script>x</script>`); err != nil {
		t.Fatalf("set: %v", err)
	}
	f, err := form.Build(sess)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	renderer, err := vanilla.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := renderer.Render(context.Background(), f, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(out), "<script>x</script>") {
		t.Fatalf("value was not escaped")
	}
}

func TestRenderer_ComponentOverride(t *testing.T) {
	t.Parallel()

	renderer, err := vanilla.New(
		vanilla.WithComponent(schema.TypeHTML, "input"),
		vanilla.WithClass(vanilla.ClassSection, "card propform-ignored"),
	)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	f, err := form.Build(testsupport.PortalSession(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out, err := renderer.Render(context.Background(), f, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	if strings.Contains(html, `class="propform-preview"`) {
		t.Fatalf("expected html field rendered as input")
	}
	assertContains(t, html, `class="propform-section card"`)
}

func TestRenderer_CancelledContext(t *testing.T) {
	t.Parallel()

	renderer, err := vanilla.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := renderer.Render(ctx, form.Form{}, render.RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestAssetsFS(t *testing.T) {
	t.Parallel()

	for _, name := range []string{vanilla.StylesheetName, vanilla.ScriptName} {
		data, err := fs.ReadFile(vanilla.AssetsFS(), name)
		if err != nil || len(data) == 0 {
			t.Fatalf("expected asset %s: %v", name, err)
		}
	}
}
