package propform

import (
	"io/fs"
	"strings"
	"testing"
)

func TestRuntimeAssetsFSContainsScript(t *testing.T) {
	data, err := fs.ReadFile(RuntimeAssetsFS(), "propform.js")
	if err != nil {
		t.Fatalf("expected behaviour script to be readable: %v", err)
	}
	if !strings.Contains(string(data), "/api/probe") {
		t.Fatalf("expected behaviour script to call the probe endpoint")
	}
}

func TestRuntimeAssetsFSContainsStylesheet(t *testing.T) {
	if _, err := fs.ReadFile(RuntimeAssetsFS(), "propform.css"); err != nil {
		t.Fatalf("expected stylesheet to be readable: %v", err)
	}
}

func TestEmbeddedTemplates(t *testing.T) {
	if _, err := fs.ReadFile(EmbeddedTemplates(), "templates/form.tmpl"); err != nil {
		t.Fatalf("expected form template: %v", err)
	}
}
