package components

import (
	"bytes"
	"fmt"
	"strings"
)

const templatePrefix = "templates/components/"

// ScriptPath is where the default registry expects the behaviour script,
// served from the renderer's AssetsFS.
const ScriptPath = "/assets/propform.js"

// NewDefaultRegistry returns a registry with the built-in components.
func NewDefaultRegistry() *Registry {
	registry := New()
	script := Script{Src: ScriptPath, Defer: true}

	registry.MustRegister(NameInput, Descriptor{
		Renderer: templateComponentRenderer("forms.input", templatePrefix+"input.tmpl"),
	})
	registry.MustRegister(NamePassword, Descriptor{
		Renderer: templateComponentRenderer("forms.password", templatePrefix+"input.tmpl"),
	})
	registry.MustRegister(NameURL, Descriptor{
		Renderer: templateComponentRenderer("forms.url", templatePrefix+"input.tmpl"),
		Scripts:  []Script{script},
	})
	registry.MustRegister(NameBoolean, Descriptor{
		Renderer: templateComponentRenderer("forms.checkbox", templatePrefix+"boolean.tmpl"),
		Scripts:  []Script{script},
	})
	registry.MustRegister(NameSelect, Descriptor{
		Renderer: templateComponentRenderer("forms.select", templatePrefix+"select.tmpl"),
		Scripts:  []Script{script},
	})
	registry.MustRegister(NameHTML, Descriptor{
		Renderer: templateComponentRenderer("forms.html", templatePrefix+"html.tmpl"),
	})
	return registry
}

func templateComponentRenderer(partialKey, templateName string) Renderer {
	return func(buf *bytes.Buffer, field Field, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}
		resolved := templateName
		if candidate := strings.TrimSpace(data.ThemePartials[partialKey]); candidate != "" {
			resolved = candidate
		}
		rendered, err := data.Template.RenderTemplate(resolved, map[string]any{"field": field})
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", resolved, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}
