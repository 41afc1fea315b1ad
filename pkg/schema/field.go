package schema

import (
	"fmt"
	"strings"
)

// FieldType names a property variant on the wire.
type FieldType string

const (
	TypeText           FieldType = "text"
	TypeNumber         FieldType = "number"
	TypeBoolean        FieldType = "boolean"
	TypeURL            FieldType = "url"
	TypePassword       FieldType = "password"
	TypeHTML           FieldType = "html"
	TypeSelect         FieldType = "select"
	TypeDynamicSelect  FieldType = "dynamicSelect"
	TypeMexicoStates   FieldType = "mexicoStates"
	TypePaymentPeriods FieldType = "paymentPeriods"
)

// BooleanType selects how a boolean property is written to flat text.
type BooleanType string

const (
	// BooleanString writes "true"/"false".
	BooleanString BooleanType = "string"
	// BooleanNumber writes "1"/"0".
	BooleanNumber BooleanType = "number"
)

// Format renders v using the boolean spelling. Anything other than
// BooleanString falls back to the numeric form.
func (b BooleanType) Format(v bool) string {
	if b == BooleanString {
		if v {
			return "true"
		}
		return "false"
	}
	if v {
		return "1"
	}
	return "0"
}

// Off returns the spelling of false.
func (b BooleanType) Off() string {
	return b.Format(false)
}

// Truthy reports whether raw is one of the recognised "on" spellings.
func Truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

// Field is the closed set of property variants. Each implementation carries
// only the attributes its type needs.
type Field interface {
	Type() FieldType
	field()
}

// TextField is a free-form single line value.
type TextField struct{}

// NumberField holds digits. ConfirmOnZero asks for confirmation when the value
// is zero or empty.
type NumberField struct {
	ConfirmOnZero bool
}

// BooleanField is rendered as a toggle.
type BooleanField struct {
	BooleanType BooleanType
}

// URLField holds an http(s) address. CheckService enables reachability
// probing.
type URLField struct {
	CheckService bool
}

// PasswordField is a masked text value.
type PasswordField struct{}

// HTMLField holds markup shown with a sanitized preview.
type HTMLField struct{}

// SelectField offers a fixed option list.
type SelectField struct {
	Options []Option
}

// DynamicSelectField offers options computed from another property's value.
type DynamicSelectField struct{}

// MexicoStatesField selects from the configuration's state catalog.
type MexicoStatesField struct{}

// PaymentPeriodsField selects from the configuration's payment period catalog.
type PaymentPeriodsField struct{}

func (TextField) Type() FieldType           { return TypeText }
func (NumberField) Type() FieldType         { return TypeNumber }
func (BooleanField) Type() FieldType        { return TypeBoolean }
func (URLField) Type() FieldType            { return TypeURL }
func (PasswordField) Type() FieldType       { return TypePassword }
func (HTMLField) Type() FieldType           { return TypeHTML }
func (SelectField) Type() FieldType         { return TypeSelect }
func (DynamicSelectField) Type() FieldType  { return TypeDynamicSelect }
func (MexicoStatesField) Type() FieldType   { return TypeMexicoStates }
func (PaymentPeriodsField) Type() FieldType { return TypePaymentPeriods }

func (TextField) field()           {}
func (NumberField) field()         {}
func (BooleanField) field()        {}
func (URLField) field()            {}
func (PasswordField) field()       {}
func (HTMLField) field()           {}
func (SelectField) field()         {}
func (DynamicSelectField) field()  {}
func (MexicoStatesField) field()   {}
func (PaymentPeriodsField) field() {}

// newField builds the variant for t from the flat wire attributes.
func newField(t FieldType, w propertyWire) (Field, error) {
	switch t {
	case TypeText, "":
		return TextField{}, nil
	case TypeNumber:
		return NumberField{ConfirmOnZero: w.ConfirmOnZero}, nil
	case TypeBoolean:
		bt := w.BooleanType
		if bt == "" {
			bt = BooleanString
		}
		return BooleanField{BooleanType: bt}, nil
	case TypeURL:
		return URLField{CheckService: w.CheckService}, nil
	case TypePassword:
		return PasswordField{}, nil
	case TypeHTML:
		return HTMLField{}, nil
	case TypeSelect:
		return SelectField{Options: append([]Option(nil), w.Options...)}, nil
	case TypeDynamicSelect:
		return DynamicSelectField{}, nil
	case TypeMexicoStates:
		return MexicoStatesField{}, nil
	case TypePaymentPeriods:
		return PaymentPeriodsField{}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFieldType, t)
	}
}
