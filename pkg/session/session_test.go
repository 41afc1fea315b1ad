package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/visibility"
)

const fixture = `{
  "projectName": "Portal",
  "domainCountKey": "portal.domains.total",
  "globalProperties": [
    {"category": "Portal", "properties": [
      {"key": "portal.enabled", "type": "boolean", "booleanType": "string", "default": "true"},
      {"key": "portal.url", "label": "Portal URL", "type": "url", "default": "https://portal.test", "needsConfirmation": true,
       "dependsOn": {"key": "portal.enabled", "value": "true"}},
      {"key": "portal.domains.total", "type": "number", "default": "3"},
      {"key": "portal.retries", "type": "number", "default": "0", "needsConfirmation": true, "confirmOnZero": true},
      {"key": "portal.languages", "type": "text", "default": "es, en"},
      {"key": "portal.language.default", "type": "dynamicSelect", "dynamicOptionsFrom": {"key": "portal.languages"}},
      {"key": "portal.mirror.count", "type": "number", "default": "2"},
      {"key": "portal.mirror[N]", "label": "Mirror", "type": "text", "default": ["m1", "m2"], "needsConfirmation": true,
       "repeatBasedOn": {"key": "portal.mirror.count", "placeholder": "[N]", "label": "Mirror"}}
    ]}
  ],
  "domainProperties": [
    {"category": "Site", "isDomain": true, "properties": [
      {"key": "site.domain{N}.id", "type": "number", "autoFillDomainId": true},
      {"key": "site.domain{N}.name", "label": "Name", "type": "text", "default": "site", "needsConfirmation": true},
      {"key": "site.domain{N}.ssl", "type": "boolean", "booleanType": "number", "default": "0"},
      {"key": "site.domain{N}.cert", "label": "Certificate", "type": "text", "needsConfirmation": true,
       "dependsOn": {"key": "site.domain{N}.ssl", "value": "1"}}
    ]}
  ]
}`

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	cfg, err := schema.Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	s, err := New(&cfg, append([]Option{WithDocument([]byte(fixture))}, opts...)...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func pendingKeys(t *testing.T, s *Session) []string {
	t.Helper()
	pending, err := s.Unconfirmed()
	if err != nil {
		t.Fatalf("unconfirmed: %v", err)
	}
	keys := make([]string, 0, len(pending))
	for _, p := range pending {
		keys = append(keys, p.Key)
	}
	return keys
}

func TestNew_SeedsDomainsFromCountKey(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	domains := s.Domains()
	if len(domains) != 3 {
		t.Fatalf("expected 3 domains, got %d", len(domains))
	}
	for i, d := range domains {
		if d.ID != i+1 || d.Name != "Domain "+string(rune('1'+i)) {
			t.Fatalf("unexpected domain %+v", d)
		}
		if diff := cmp.Diff(schema.Values{"site.domain{N}.id": string(rune('1' + i))}, d.Values); diff != "" {
			t.Fatalf("domain %d values mismatch (-want +got):\n%s", d.ID, diff)
		}
	}
	if s.ActiveDomain() != 1 {
		t.Fatalf("expected first domain active, got %d", s.ActiveDomain())
	}
	if got, _ := s.Get("site.domain2.name"); got != "site" {
		t.Fatalf("expected default to read through, got %q", got)
	}
}

func TestNew_DefaultCountAndNoDomains(t *testing.T) {
	t.Parallel()

	cfg := schema.Configuration{
		GlobalProperties: []schema.Category{{Name: "G", Properties: []schema.Property{{Key: "a", Field: schema.TextField{}}}}},
		DomainProperties: []schema.Category{{Name: "D", Properties: []schema.Property{{Key: "x.domain{N}.y", Field: schema.TextField{}}}}},
	}
	s, err := New(&cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := len(s.Domains()); got != DefaultDomainCount {
		t.Fatalf("expected %d domains, got %d", DefaultDomainCount, got)
	}

	cfg.DomainProperties = []schema.Category{{Name: "Empty", Properties: []schema.Property{}}}
	s, err = New(&cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(s.Domains()) != 0 || s.ActiveDomain() != 0 {
		t.Fatalf("expected no domains without domain properties")
	}
}

func TestNew_RejectsCycles(t *testing.T) {
	t.Parallel()

	cfg := schema.Configuration{
		GlobalProperties: []schema.Category{{Name: "G", Properties: []schema.Property{
			{Key: "a", Field: schema.TextField{}, DependsOn: &schema.Dependency{Key: "b", Value: "1"}},
			{Key: "b", Field: schema.TextField{}, DependsOn: &schema.Dependency{Key: "a", Value: "1"}},
		}}},
		DomainProperties: []schema.Category{},
	}
	if _, err := New(&cfg); !errors.Is(err, visibility.ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestSet_DomainCountResizesAndClamps(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	cases := []struct {
		value string
		want  int
	}{
		{"5", 5},
		{"12", MaxDomains},
		{"2", 2},
		{"0", MinDomains},
		{"-4", MinDomains},
		{"abc", MinDomains},
	}
	for _, tc := range cases {
		if _, err := s.Set("portal.domains.total", tc.value); err != nil {
			t.Fatalf("set %q: %v", tc.value, err)
		}
		if got := len(s.Domains()); got != tc.want {
			t.Fatalf("count %q: got %d domains, want %d", tc.value, got, tc.want)
		}
	}
}

func TestSet_RecomputesVisibility(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	if !s.State().Visible("portal.url") {
		t.Fatalf("portal.url should start visible")
	}
	state, err := s.Set("portal.enabled", "false")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if state.Visible("portal.url") {
		t.Fatalf("portal.url should be hidden")
	}
}

func TestSet_KeyForms(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	if _, err := s.Set("site.domain{N}.name", "first"); err != nil {
		t.Fatalf("set templated: %v", err)
	}
	if _, err := s.Set("site.domain3.name", "third"); err != nil {
		t.Fatalf("set concrete: %v", err)
	}
	if _, err := s.Set("portal.mirror7", "m7"); err != nil {
		t.Fatalf("set repeat instance: %v", err)
	}

	snap := s.Snapshot()
	if snap.Domains[0].Properties["site.domain{N}.name"] != "first" || snap.Domains[2].Properties["site.domain{N}.name"] != "third" {
		t.Fatalf("unexpected domain values %+v", snap.Domains)
	}
	if snap.Global["portal.mirror7"] != "m7" {
		t.Fatalf("repeat instance not stored")
	}

	for _, key := range []string{"", "nope", "portal.mirrorX", "portal.mirror0", "site.domain9.name"} {
		if _, err := s.Set(key, "v"); err == nil {
			t.Fatalf("expected error for %q", key)
		}
	}
	if _, err := s.Set("nope", "v"); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
	if _, err := s.Set("site.domain9.name", "v"); !errors.Is(err, ErrUnknownDomain) {
		t.Fatalf("expected ErrUnknownDomain, got %v", err)
	}
}

func TestSwitchDomain_KeepsValuesPerDomain(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	state, err := s.Set("site.domain{N}.ssl", "1")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !state.Visible("site.domain{N}.cert") {
		t.Fatalf("cert should be visible on domain 1")
	}

	state, err = s.SwitchDomain(2)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if state.Visible("site.domain{N}.cert") {
		t.Fatalf("cert should be hidden on domain 2")
	}
	if got, _ := s.Get("site.domain1.ssl"); got != "1" {
		t.Fatalf("domain 1 value lost, got %q", got)
	}
	if got, _ := s.Get("site.domain{N}.ssl"); got != "0" {
		t.Fatalf("domain 2 should read its default, got %q", got)
	}

	if _, err := s.SwitchDomain(7); !errors.Is(err, ErrUnknownDomain) {
		t.Fatalf("expected ErrUnknownDomain, got %v", err)
	}
}

func TestAddRemoveDomain(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	d, err := s.AddDomain()
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if d.ID != 4 || s.ActiveDomain() != 4 || d.Values["site.domain{N}.id"] != "4" {
		t.Fatalf("unexpected added domain %+v (active %d)", d, s.ActiveDomain())
	}
	if got, _ := s.Get("portal.domains.total"); got != "4" {
		t.Fatalf("count key not synced, got %q", got)
	}

	for want := 4; want > 1; want-- {
		removed, err := s.RemoveDomain()
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if removed != want {
			t.Fatalf("removed %d, want %d", removed, want)
		}
	}
	if s.ActiveDomain() != 1 {
		t.Fatalf("active domain should fall back to 1, got %d", s.ActiveDomain())
	}
	if _, err := s.RemoveDomain(); !errors.Is(err, ErrLastDomain) {
		t.Fatalf("expected ErrLastDomain, got %v", err)
	}
}

func TestRequiresConfirmation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		prop  schema.Property
		value string
		want  bool
	}{
		{"not flagged", schema.Property{Field: schema.TextField{}}, "x", false},
		{"text", schema.Property{Field: schema.TextField{}, NeedsConfirmation: true}, "x", true},
		{"url", schema.Property{Field: schema.URLField{}, NeedsConfirmation: true}, "", true},
		{"password", schema.Property{Field: schema.PasswordField{}, NeedsConfirmation: true}, "s", true},
		{"number zero", schema.Property{Field: schema.NumberField{ConfirmOnZero: true}, NeedsConfirmation: true}, "0", true},
		{"number empty", schema.Property{Field: schema.NumberField{ConfirmOnZero: true}, NeedsConfirmation: true}, "", true},
		{"number set", schema.Property{Field: schema.NumberField{ConfirmOnZero: true}, NeedsConfirmation: true}, "3", false},
		{"number without zero rule", schema.Property{Field: schema.NumberField{}, NeedsConfirmation: true}, "0", false},
		{"boolean", schema.Property{Field: schema.BooleanField{}, NeedsConfirmation: true}, "true", false},
	}
	for _, tc := range cases {
		if got := RequiresConfirmation(tc.prop, tc.value); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestConfirmations_BlockExport(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	want := []string{
		"portal.url",
		"portal.retries",
		"portal.mirror1",
		"portal.mirror2",
		"site.domain1.name",
		"site.domain2.name",
		"site.domain3.name",
	}
	if diff := cmp.Diff(want, pendingKeys(t, s)); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}

	var out strings.Builder
	err := s.ExportProperties(&out)
	var uerr *UnconfirmedError
	if !errors.As(err, &uerr) || !errors.Is(err, ErrUnconfirmed) {
		t.Fatalf("expected UnconfirmedError, got %v", err)
	}
	if uerr.First().Key != "portal.url" || uerr.First().Label != "Portal URL" {
		t.Fatalf("unexpected first field %+v", uerr.First())
	}
	if out.Len() != 0 {
		t.Fatalf("blocked export must not write output")
	}

	if err := s.Confirm("portal.url", "https://other.test"); !errors.Is(err, ErrConfirmationMismatch) {
		t.Fatalf("expected ErrConfirmationMismatch, got %v", err)
	}
	if err := s.Confirm("portal.url", "https://portal.test"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := s.Set("portal.retries", "4"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := s.Set("portal.mirror.count", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Confirm("portal.mirror1", "m1"); err != nil {
		t.Fatalf("confirm repeat: %v", err)
	}
	if _, err := s.Set("site.domain{N}.ssl", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	want = []string{"site.domain1.name", "site.domain1.cert", "site.domain2.name", "site.domain3.name"}
	if diff := cmp.Diff(want, pendingKeys(t, s)); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Set("site.domain{N}.ssl", "0"); err != nil {
		t.Fatalf("set: %v", err)
	}
	for id := 1; id <= 3; id++ {
		key := "site.domain" + string(rune('0'+id)) + ".name"
		if err := s.Confirm(key, "site"); err != nil {
			t.Fatalf("confirm %s: %v", key, err)
		}
	}
	if keys := pendingKeys(t, s); len(keys) != 0 {
		t.Fatalf("expected nothing pending, got %v", keys)
	}

	if err := s.ExportProperties(&out); err != nil {
		t.Fatalf("export: %v", err)
	}
	text := out.String()
	for _, line := range []string{"\nportal.url=https://portal.test\n", "\nportal.mirror1=m1\n", "\nsite.domain3.id=3\n", "\nsite.domain2.ssl=0\n"} {
		if !strings.Contains(text, line) {
			t.Fatalf("missing %q in output:\n%s", line, text)
		}
	}

	if _, err := s.Set("portal.url", "https://changed.test"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if s.IsConfirmed("portal.url") {
		t.Fatalf("editing a value should invalidate its confirmation")
	}
}

func TestUnconfirmed_SkipsHidden(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	if _, err := s.Set("portal.enabled", "false"); err != nil {
		t.Fatalf("set: %v", err)
	}
	for _, key := range pendingKeys(t, s) {
		if key == "portal.url" {
			t.Fatalf("hidden field should not need confirmation")
		}
	}
}

func TestDynamicOptions(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	options, selected, err := s.DynamicOptions("portal.language.default")
	if err != nil {
		t.Fatalf("dynamic options: %v", err)
	}
	if diff := cmp.Diff([]string{"es", "en"}, options); diff != "" || selected != "es" {
		t.Fatalf("unexpected options %v selected %q", options, selected)
	}

	if _, err := s.Set("portal.language.default", "en"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, selected, _ = s.DynamicOptions("portal.language.default"); selected != "en" {
		t.Fatalf("expected current value kept, got %q", selected)
	}

	if _, err := s.Set("portal.languages", "fr"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, selected, _ = s.DynamicOptions("portal.language.default"); selected != "fr" {
		t.Fatalf("expected fallback to first option, got %q", selected)
	}

	if _, _, err := s.DynamicOptions("portal.url"); err == nil {
		t.Fatalf("expected error for non-dynamic property")
	}
}

func TestExportImportValues(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	if _, err := s.Set("portal.domains.total", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := s.Set("site.domain2.name", "beta"); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, err := s.ExportValues()
	if err != nil {
		t.Fatalf("export values: %v", err)
	}

	other := newSession(t)
	if _, err := other.ImportValues(data); err != nil {
		t.Fatalf("import values: %v", err)
	}
	if diff := cmp.Diff(s.Snapshot(), other.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestExportJSON(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	if _, err := s.Set("portal.enabled", "no"); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, err := s.ExportJSON()
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	cfg, err := schema.Parse(data)
	if err != nil {
		t.Fatalf("exported json should parse: %v", err)
	}
	if def, _ := cfg.Default("portal.enabled"); def != "false" {
		t.Fatalf("boolean default should be normalized, got %q", def)
	}
	if !strings.Contains(string(data), `"_domainValues"`) {
		t.Fatalf("missing domain values in %s", data)
	}
}

func TestImportProperties(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	input := "portal.domains.total=4\nsite.domain4.name=delta\nportal.retries=9\nunknown.key=1\n"
	if _, err := s.ImportProperties(strings.NewReader(input)); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := len(s.Domains()); got != 4 {
		t.Fatalf("expected 4 domains, got %d", got)
	}
	if got, _ := s.Get("site.domain4.name"); got != "delta" {
		t.Fatalf("unexpected domain 4 name %q", got)
	}
	if got, _ := s.Get("portal.retries"); got != "9" {
		t.Fatalf("unexpected retries %q", got)
	}
	if _, ok := s.Snapshot().Global["unknown.key"]; ok {
		t.Fatalf("unknown keys should be ignored")
	}
}

const countlessFixture = `{
  "projectName": "App",
  "globalProperties": [
    {"category": "App", "properties": [
      {"key": "app.title", "type": "text", "default": "App"}
    ]}
  ],
  "domainProperties": [
    {"category": "Site", "isDomain": true, "properties": [
      {"key": "app.domain{N}.name", "type": "text", "default": "site"}
    ]}
  ]
}`

func TestImportProperties_WithoutCountKeySizesFreshSession(t *testing.T) {
	t.Parallel()

	cfg, err := schema.Parse([]byte(countlessFixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	s, err := New(&cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if got := len(s.Domains()); got != DefaultDomainCount {
		t.Fatalf("expected %d default domains, got %d", DefaultDomainCount, got)
	}

	if _, err := s.ImportProperties(strings.NewReader("app.domain1.name=Acme\n")); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := len(s.Domains()); got != 1 {
		t.Fatalf("first import should size the session to 1 domain, got %d", got)
	}
	var out strings.Builder
	if err := s.ExportProperties(&out); err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.Contains(out.String(), "app.domain2.name") {
		t.Fatalf("export invented a second domain:\n%s", out.String())
	}

	if _, err := s.ImportProperties(strings.NewReader("app.domain3.name=Gamma\n")); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if got := len(s.Domains()); got != 3 {
		t.Fatalf("later imports should grow to 3 domains, got %d", got)
	}
	if _, err := s.ImportProperties(strings.NewReader("app.domain1.name=Acme\n")); err != nil {
		t.Fatalf("third import: %v", err)
	}
	if got := len(s.Domains()); got != 3 {
		t.Fatalf("later imports should not shrink, got %d", got)
	}
}

func TestExportProperties_ConcurrentEditsNeverLeakUnconfirmed(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	if _, err := s.Set("portal.domains.total", "1"); err != nil {
		t.Fatalf("set count: %v", err)
	}
	pending, err := s.Unconfirmed()
	if err != nil {
		t.Fatalf("unconfirmed: %v", err)
	}
	for _, p := range pending {
		if err := s.Confirm(p.Key, p.Value); err != nil {
			t.Fatalf("confirm %s: %v", p.Key, err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			value := "https://edit.test"
			if i%2 == 1 {
				value = "https://portal.test"
			}
			_, _ = s.Set("portal.url", value)
		}
	}()

	for i := 0; i < 200; i++ {
		var out strings.Builder
		err := s.ExportProperties(&out)
		if err == nil && strings.Contains(out.String(), "portal.url=https://edit.test") {
			t.Fatalf("exported an unconfirmed value:\n%s", out.String())
		}
	}
	<-done
}
