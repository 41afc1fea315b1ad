package keytemplate

import "testing"

func TestMatchesDomainPattern(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		key     string
		pattern string
		want    bool
	}{
		{name: "concrete", key: "app.domain1.name", pattern: "domain{N}", want: true},
		{name: "multi digit", key: "app.domain12.name", pattern: "domain{N}", want: true},
		{name: "template form", key: "app.domain{N}.name", pattern: "domain{N}", want: true},
		{name: "case insensitive", key: "app.DOMAIN3.name", pattern: "domain{N}", want: true},
		{name: "no digits", key: "app.domain.name", pattern: "domain{N}", want: false},
		{name: "absent", key: "feature.enabled", pattern: "domain{N}", want: false},
		{name: "suffix", key: "site_7_url", pattern: "site_{N}_", want: true},
		{name: "suffix missing", key: "site_7url", pattern: "site_{N}_", want: false},
		{name: "empty pattern", key: "domain1", pattern: "", want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := MatchesDomainPattern(tc.key, tc.pattern); got != tc.want {
				t.Fatalf("MatchesDomainPattern(%q, %q) = %v, want %v", tc.key, tc.pattern, got, tc.want)
			}
		})
	}
}

func TestToTemplate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key     string
		pattern string
		want    string
	}{
		{key: "app.domain1.name", pattern: "domain{N}", want: "app.domain{N}.name"},
		{key: "app.domain1.slot2.domain3", pattern: "domain{N}", want: "app.domain{N}.slot2.domain3"},
		{key: "app.Domain4.name", pattern: "domain{N}", want: "app.Domain{N}.name"},
		{key: "feature.enabled", pattern: "domain{N}", want: "feature.enabled"},
		{key: "app.domain1.name", pattern: "domain", want: "app.domain1.name"},
		{key: "app.domain1.name", pattern: "{N}domain{N}", want: "app.domain1.name"},
	}

	for _, tc := range cases {
		if got := ToTemplate(tc.key, tc.pattern); got != tc.want {
			t.Fatalf("ToTemplate(%q, %q) = %q, want %q", tc.key, tc.pattern, got, tc.want)
		}
	}
}

func TestExpandThenTemplateRoundTrips(t *testing.T) {
	t.Parallel()

	pattern := ParsePattern("domain{N}")
	keys := []string{"app.domain{N}.name", "domain{N}", "x.domain{N}", "portal.v2.domain{N}.url"}
	for _, key := range keys {
		for _, i := range []int{1, 2, 9, 10, 123} {
			expanded := Expand(key, i)
			if IsTemplate(expanded) {
				t.Fatalf("Expand(%q, %d) left placeholder: %q", key, i, expanded)
			}
			if got := pattern.ToTemplate(expanded); got != key {
				t.Fatalf("ToTemplate(Expand(%q, %d)) = %q", key, i, got)
			}
		}
	}
}

func TestExpandReplacesEveryPlaceholder(t *testing.T) {
	t.Parallel()

	if got := Expand("a{N}.b{N}", 4); got != "a4.b4" {
		t.Fatalf("unexpected expansion %q", got)
	}
}

func TestPatternIndex(t *testing.T) {
	t.Parallel()

	pattern := ParsePattern("domain{N}")
	if n, ok := pattern.Index("app.domain17.name"); !ok || n != 17 {
		t.Fatalf("Index() = %d, %v", n, ok)
	}
	if _, ok := pattern.Index("app.name"); ok {
		t.Fatalf("expected no index")
	}
}

func TestExpandRepeat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key         string
		placeholder string
		want        string
	}{
		{key: "mail.account[N].user", placeholder: "[N]", want: "mail.account2.user"},
		{key: "mail.account{N}.user", placeholder: "", want: "mail.account2.user"},
		{key: "mail.account#.user", placeholder: "#", want: "mail.account2.user"},
	}
	for _, tc := range cases {
		if got := ExpandRepeat(tc.key, tc.placeholder, 2); got != tc.want {
			t.Fatalf("ExpandRepeat(%q, %q) = %q, want %q", tc.key, tc.placeholder, got, tc.want)
		}
	}
}
