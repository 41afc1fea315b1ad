package render

import (
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-propform/pkg/session"
)

// RenderOptions carry per-request data renderers use without changing the
// form itself.
type RenderOptions struct {
	// Action is the submit target of HTML renderers.
	Action string
	// Errors holds field messages keyed by concrete field key; FormErrors the
	// messages shown above the form. See MapErrorPayload and
	// UnconfirmedErrors.
	Errors     map[string][]string
	FormErrors []string
	// HiddenFields are written as hidden inputs, see MergeHiddenFields.
	HiddenFields map[string]string
	// Theme is the resolved go-theme configuration, nil for unthemed output.
	Theme *theme.RendererConfig
	// Session is required by interactive renderers that edit values while
	// rendering.
	Session *session.Session
}
