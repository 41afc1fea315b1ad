package testsupport

import (
	"context"
	"embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/session"
)

//go:embed testdata/*.json
var fixtures embed.FS

// PortalDocument returns the raw portal fixture: two domains, a repeatable
// mirror list, dependent mail settings and every field variant.
func PortalDocument() []byte {
	data, err := fixtures.ReadFile("testdata/portal.json")
	if err != nil {
		panic(err)
	}
	return data
}

// PortalConfiguration parses the portal fixture.
func PortalConfiguration(t testing.TB) schema.Configuration {
	t.Helper()

	cfg, err := schema.Parse(PortalDocument())
	if err != nil {
		t.Fatalf("parse portal fixture: %v", err)
	}
	return cfg
}

// PortalSession opens a session over the portal fixture.
func PortalSession(t testing.TB, opts ...session.Option) *session.Session {
	t.Helper()

	cfg := PortalConfiguration(t)
	opts = append([]session.Option{session.WithDocument(PortalDocument())}, opts...)
	sess, err := session.New(&cfg, opts...)
	if err != nil {
		t.Fatalf("new portal session: %v", err)
	}
	return sess
}

// LoadConfiguration reads and parses a schema document from disk.
func LoadConfiguration(t testing.TB, path string) schema.Configuration {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read configuration: %v", err)
	}
	cfg, err := schema.Parse(data)
	if err != nil {
		t.Fatalf("parse configuration %s: %v", path, err)
	}
	return cfg
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t testing.TB, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
