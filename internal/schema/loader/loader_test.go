package loader

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-propform/pkg/schema"
)

const doc = `{"projectName":"Demo","globalProperties":[],"domainProperties":[]}`

func TestLoader_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := New(schema.NewLoaderOptions())
	got, err := l.Load(context.Background(), schema.SourceFromFile(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got.Raw()) != doc {
		t.Fatalf("unexpected payload %q", got.Raw())
	}
}

func TestLoader_FS(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{"schemas/demo.json": {Data: []byte(doc)}}
	l := New(schema.NewLoaderOptions(schema.WithFileSystem(files)))

	got, err := l.Load(context.Background(), schema.SourceFromFS("schemas/demo.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg, err := got.Configuration()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ProjectName != "Demo" {
		t.Fatalf("unexpected project %q", cfg.ProjectName)
	}
}

func TestLoader_HTTPDisabledByDefault(t *testing.T) {
	t.Parallel()

	l := New(schema.NewLoaderOptions())
	_, err := l.Load(context.Background(), schema.SourceFromURL("http://example.invalid/config.json"))
	if !errors.Is(err, ErrSourceDisabled) {
		t.Fatalf("expected ErrSourceDisabled, got %v", err)
	}
}

func TestLoader_HTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/config.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(doc))
	}))
	defer srv.Close()

	l := New(schema.NewLoaderOptions(schema.WithHTTPFallback(2 * time.Second)))
	got, err := l.Load(context.Background(), schema.SourceFromURL(srv.URL+"/config.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Location() != srv.URL+"/config.json" {
		t.Fatalf("unexpected location %q", got.Location())
	}

	_, err = l.Load(context.Background(), schema.SourceFromURL(srv.URL+"/missing.json"))
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestLoader_Store(t *testing.T) {
	t.Parallel()

	fetch := func(_ context.Context, id string) ([]byte, error) {
		if id != "7" {
			return nil, errors.New("not found")
		}
		return []byte(doc), nil
	}
	l := New(schema.NewLoaderOptions(schema.WithStoreFetcher(fetch)))

	if _, err := l.Load(context.Background(), schema.SourceFromStore("7")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := l.Load(context.Background(), schema.SourceFromStore("8")); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestLoader_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := New(schema.NewLoaderOptions())
	if _, err := l.Load(ctx, schema.SourceFromFile("whatever.json")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoader_RejectsEmptyAndOversized(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"blank.json": {Data: []byte("  \n")},
		"huge.json":  {Data: bytes.Repeat([]byte(" "), maxDocumentBytes+1)},
	}
	l := New(schema.NewLoaderOptions(schema.WithFileSystem(files)))

	if _, err := l.Load(context.Background(), schema.SourceFromFS("blank.json")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := l.Load(context.Background(), schema.SourceFromFS("huge.json")); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size error, got %v", err)
	}
	if _, err := l.Load(context.Background(), schema.SourceFromFS("missing.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestLoader_DisabledSources(t *testing.T) {
	t.Parallel()

	l := New(schema.NewLoaderOptions())
	for _, src := range []schema.Source{schema.SourceFromFS("a.json"), schema.SourceFromStore("1")} {
		if _, err := l.Load(context.Background(), src); !errors.Is(err, ErrSourceDisabled) {
			t.Fatalf("%s: expected ErrSourceDisabled, got %v", src.Kind(), err)
		}
	}
}
