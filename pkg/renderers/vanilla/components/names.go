package components

import (
	"github.com/goliatone/go-propform/pkg/schema"
)

// Component names of the default registry.
const (
	NameInput    = "input"
	NameURL      = "url"
	NameBoolean  = "boolean"
	NameSelect   = "select"
	NameHTML     = "html"
	NamePassword = "password"
)

// ForType returns the default component for a field type.
func ForType(t schema.FieldType) string {
	switch t {
	case schema.TypeBoolean:
		return NameBoolean
	case schema.TypeURL:
		return NameURL
	case schema.TypePassword:
		return NamePassword
	case schema.TypeHTML:
		return NameHTML
	case schema.TypeSelect, schema.TypeDynamicSelect, schema.TypeMexicoStates, schema.TypePaymentPeriods:
		return NameSelect
	default:
		return NameInput
	}
}

// InputType returns the HTML input type used for t.
func InputType(t schema.FieldType) string {
	switch t {
	case schema.TypeNumber:
		return "number"
	case schema.TypeURL:
		return "url"
	case schema.TypePassword:
		return "password"
	default:
		return "text"
	}
}
