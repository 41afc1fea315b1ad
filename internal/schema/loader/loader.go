package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/goliatone/go-propform/pkg/schema"
)

// ErrSourceDisabled is returned for a source kind the loader was not given
// the means to read: no fs.FS, no HTTP client or no store fetcher.
var ErrSourceDisabled = errors.New("schema loader: source kind disabled")

// ErrEmptyDocument is returned when a source yields only whitespace.
var ErrEmptyDocument = errors.New("schema loader: document is empty")

// Loader implements schema.Loader over files, fs.FS, HTTP and the store.
type Loader struct {
	fs    fs.FS
	http  *http.Client
	store schema.StoreFetcher
}

var _ schema.Loader = (*Loader)(nil)

// New builds a Loader. URL sources need an HTTP client, either injected or
// built because AllowHTTPFallback is set; RequestTimeout applies to both.
func New(options schema.LoaderOptions) *Loader {
	l := &Loader{fs: options.FileSystem, store: options.Store}
	switch {
	case options.HTTPClient != nil:
		client := *options.HTTPClient
		if client.Timeout == 0 {
			client.Timeout = options.RequestTimeout
		}
		l.http = &client
	case options.AllowHTTPFallback:
		l.http = &http.Client{Timeout: options.RequestTimeout}
	}
	return l
}

// Load reads the document behind src. The payload is not parsed; see
// schema.Document.Configuration.
func (l *Loader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if src == nil {
		return schema.Document{}, errors.New("schema loader: source is nil")
	}
	if err := ctx.Err(); err != nil {
		return schema.Document{}, err
	}
	location := src.Location()
	if location == "" {
		return schema.Document{}, fmt.Errorf("schema loader: %s location is required", src.Kind())
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case schema.SourceKindFile:
		data, err = readFile(location)
	case schema.SourceKindFS:
		if l.fs == nil {
			return schema.Document{}, fmt.Errorf("%w: fs", ErrSourceDisabled)
		}
		data, err = readFS(l.fs, location)
	case schema.SourceKindURL:
		if l.http == nil {
			return schema.Document{}, fmt.Errorf("%w: http", ErrSourceDisabled)
		}
		data, err = fetchURL(ctx, l.http, location)
	case schema.SourceKindStore:
		if l.store == nil {
			return schema.Document{}, fmt.Errorf("%w: store", ErrSourceDisabled)
		}
		data, err = l.store(ctx, location)
	default:
		err = fmt.Errorf("schema loader: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return schema.Document{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return schema.Document{}, fmt.Errorf("%w: %s", ErrEmptyDocument, location)
	}
	return schema.NewDocument(src, data)
}
