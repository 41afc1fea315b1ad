package schema

import "errors"

var (
	// ErrMalformedSchema reports a document missing one of the required
	// top-level collections. Callers keep their previous state when a load
	// fails with it.
	ErrMalformedSchema = errors.New("schema: malformed document")

	// ErrUnknownFieldType is returned when a property declares a type outside
	// the supported set.
	ErrUnknownFieldType = errors.New("schema: unknown field type")
)
