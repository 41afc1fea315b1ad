package template

import (
	"io"
)

// TemplateRenderer is the engine seam HTML renderers depend on. Render picks
// RenderString for inline template content and RenderTemplate for names.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
