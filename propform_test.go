package propform

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/testsupport"
)

func TestGenerateHTML_FromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "portal.json")
	if err := os.WriteFile(path, testsupport.PortalDocument(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out, err := GenerateHTML(context.Background(), schema.SourceFromFile(path), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out), "Signing Portal") {
		t.Fatalf("title missing from output")
	}
}

func TestGenerateHTMLFromDocument_UnknownRenderer(t *testing.T) {
	t.Parallel()

	doc := schema.MustNewDocument(schema.SourceFromFile("portal.json"), testsupport.PortalDocument())
	if _, err := GenerateHTMLFromDocument(context.Background(), doc, "preact"); err == nil {
		t.Fatal("expected unknown renderer error")
	}
}

func TestNewLoader(t *testing.T) {
	t.Parallel()

	if NewLoader() == nil {
		t.Fatal("expected loader")
	}
}
