// Package template defines the template engine interface used by the HTML
// renderer. The gotemplate subpackage implements it on pongo2.
package template
