// Package orchestrator wires the propform pipeline: load a schema document,
// open a session over it, build the form and hand it to a renderer.
package orchestrator
