package tui

import (
	"io"

	"github.com/rs/zerolog"
)

// OutputFormat controls what Render returns once every field is answered.
type OutputFormat string

const (
	// OutputFormatProperties returns the filled .properties file.
	OutputFormatProperties OutputFormat = "properties"
	// OutputFormatJSON returns the values document.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatPrettyText returns a "key = value" summary.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme holds message prefixes the driver prints.
type Theme struct {
	InfoPrefix    string
	SectionPrefix string
}

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat selects the Render output.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}

// WithOutput redirects informational messages of the survey driver.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) {
		if w != nil {
			r.out = w
		}
	}
}

// WithMaxAttempts bounds re-prompts of a single field.
func WithMaxAttempts(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}
