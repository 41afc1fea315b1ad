package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
)

// Template slots understood by the HTML renderer. Themes override them through
// manifest templates.
const (
	PartialForm    = "forms.form"
	PartialSection = "forms.section"
	PartialField   = "forms.field"

	// AssetStylesheet names the stylesheet asset of a theme manifest.
	AssetStylesheet = "propform.stylesheet"
)

// DefaultThemeName is the theme registered by NewManifestSelector.
const DefaultThemeName = "propform"

// ErrThemeNotFound is returned when a selector has no manifest for a name.
var ErrThemeNotFound = errors.New("render: theme not found")

// DefaultPartials are the template names used when a theme leaves a slot
// empty.
func DefaultPartials() map[string]string {
	return map[string]string{
		PartialForm:    "templates/form.tmpl",
		PartialSection: "templates/section.tmpl",
		PartialField:   "templates/field.tmpl",
	}
}

// DefaultManifest is the built-in light theme with a dark variant.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			"color-bg":      "#f7f8fa",
			"color-surface": "#ffffff",
			"color-text":    "#1f2933",
			"color-accent":  "#2563eb",
			"color-danger":  "#dc2626",
			"color-muted":   "#6b7280",
			"radius":        "6px",
		},
		Assets: theme.Assets{
			Prefix: "/assets",
			Files: map[string]string{
				AssetStylesheet: "propform.css",
			},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"color-bg":      "#111827",
					"color-surface": "#1f2937",
					"color-text":    "#f3f4f6",
					"color-accent":  "#60a5fa",
					"color-muted":   "#9ca3af",
				},
			},
		},
	}
}

// ThemeConfig flattens a selection into the renderer configuration: variant
// tokens and templates override the base manifest, templates fall back to
// fallbacks, every token becomes a "--token" CSS variable and AssetURL joins
// the asset prefix with the variant or base file. A nil selection yields nil.
func ThemeConfig(selection *theme.Selection, fallbacks map[string]string) *theme.RendererConfig {
	if selection == nil || selection.Manifest == nil {
		return nil
	}
	manifest := selection.Manifest
	variant, hasVariant := manifest.Variants[selection.Variant]

	tokens := make(map[string]string, len(manifest.Tokens))
	for k, v := range manifest.Tokens {
		tokens[k] = v
	}
	partials := make(map[string]string, len(fallbacks)+len(manifest.Templates))
	for k, v := range fallbacks {
		partials[k] = v
	}
	for k, v := range manifest.Templates {
		partials[k] = v
	}
	files := make(map[string]string, len(manifest.Assets.Files))
	for k, v := range manifest.Assets.Files {
		files[k] = v
	}
	prefix := manifest.Assets.Prefix

	if hasVariant {
		for k, v := range variant.Tokens {
			tokens[k] = v
		}
		for k, v := range variant.Templates {
			partials[k] = v
		}
		for k, v := range variant.Assets.Files {
			files[k] = v
		}
		if variant.Assets.Prefix != "" {
			prefix = variant.Assets.Prefix
		}
	}

	cssVars := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cssVars["--"+strings.TrimPrefix(k, "--")] = v
	}

	return &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: partials,
		Tokens:   tokens,
		CSSVars:  cssVars,
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok {
				return ""
			}
			if prefix == "" || strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
				return file
			}
			return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
		},
	}
}

// StyleAttribute renders the CSS variables of cfg as an inline style value in
// key order. A nil config yields "".
func StyleAttribute(cfg *theme.RendererConfig) string {
	if cfg == nil || len(cfg.CSSVars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(cfg.CSSVars))
	for k := range cfg.CSSVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s: %s;", k, cfg.CSSVars[k])
	}
	return b.String()
}

// ManifestSelector is a theme.ThemeSelector over registered manifests with a
// default theme and variant.
type ManifestSelector struct {
	mu             sync.RWMutex
	registry       manifestRegistry
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

var _ theme.ThemeSelector = (*ManifestSelector)(nil)

type manifestRegistry interface {
	Register(*theme.Manifest) error
}

// NewManifestSelector returns a selector holding DefaultManifest plus the
// given manifests. The default theme is DefaultThemeName.
func NewManifestSelector(manifests ...*theme.Manifest) (*ManifestSelector, error) {
	s := &ManifestSelector{
		registry:     theme.NewRegistry(),
		manifests:    make(map[string]*theme.Manifest),
		defaultTheme: DefaultThemeName,
	}
	all := append([]*theme.Manifest{DefaultManifest()}, manifests...)
	for _, manifest := range all {
		if err := s.Register(manifest); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register validates and adds a manifest.
func (s *ManifestSelector) Register(manifest *theme.Manifest) error {
	if manifest == nil {
		return fmt.Errorf("render: theme manifest is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.manifests[manifest.Name]; exists {
		return fmt.Errorf("render: theme %q already registered", manifest.Name)
	}
	if err := s.registry.Register(manifest); err != nil {
		return fmt.Errorf("render: register theme %q: %w", manifest.Name, err)
	}
	s.manifests[manifest.Name] = manifest
	return nil
}

// SetDefault changes the theme and variant used for empty selections.
func (s *ManifestSelector) SetDefault(name, variant string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultTheme = name
	s.defaultVariant = variant
}

// Select resolves name and variant, falling back to the defaults when empty.
// An unknown variant resolves to the base manifest.
func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		name = s.defaultTheme
		if variant == "" {
			variant = s.defaultVariant
		}
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}
	if _, ok := manifest.Variants[variant]; !ok {
		variant = ""
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// Names lists the registered themes in sorted order.
func (s *ManifestSelector) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.manifests))
	for name := range s.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
