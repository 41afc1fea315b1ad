// Package propform turns a configuration schema document into a browser form
// and a flat key=value properties file.
//
// The core packages live under pkg/: keytemplate expands per-domain keys,
// schema models the document, visibility resolves dependencies, session holds
// the values being edited, codec/properties reads and writes the flat-text
// format and form plus renderers/* produce the UI.
package propform
