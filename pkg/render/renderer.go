package render

import (
	"context"

	"github.com/goliatone/go-propform/pkg/form"
)

// Renderer turns a form into a byte representation (HTML, a filled
// properties file, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, f form.Form, options RenderOptions) ([]byte, error)
}
