package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownProperty is returned when a key matches no property, domain
	// instance or repeat instance of the configuration.
	ErrUnknownProperty = errors.New("session: unknown property")
	// ErrUnknownDomain is returned for domain ids outside the current list.
	ErrUnknownDomain = errors.New("session: unknown domain")
	// ErrLastDomain is returned when removing the only remaining domain.
	ErrLastDomain = errors.New("session: at least one domain must remain")
	// ErrConfirmationMismatch is returned when a confirmation names a value
	// other than the current one.
	ErrConfirmationMismatch = errors.New("session: confirmed value differs from current value")
	// ErrUnconfirmed is matched by *UnconfirmedError.
	ErrUnconfirmed = errors.New("session: unconfirmed fields")
)

// Pending is a field that still needs confirmation.
type Pending struct {
	// Key is the concrete key as written on export.
	Key string `json:"key"`
	// Property is the configuration key, templated for domain fields.
	Property string `json:"property"`
	Label    string `json:"label"`
	// Domain is the domain id, zero for global fields.
	Domain int    `json:"domain,omitempty"`
	Value  string `json:"value"`
}

// UnconfirmedError blocks an export until every listed field is confirmed.
type UnconfirmedError struct {
	Fields []Pending
}

func (e *UnconfirmedError) Error() string {
	if len(e.Fields) == 0 {
		return ErrUnconfirmed.Error()
	}
	first := e.Fields[0]
	label := first.Label
	if label == "" {
		label = first.Key
	}
	var b strings.Builder
	fmt.Fprintf(&b, "session: %d unconfirmed field", len(e.Fields))
	if len(e.Fields) > 1 {
		b.WriteByte('s')
	}
	fmt.Fprintf(&b, ", first %q (%s)", label, first.Key)
	return b.String()
}

// First returns the field to surface for correction.
func (e *UnconfirmedError) First() Pending {
	if len(e.Fields) == 0 {
		return Pending{}
	}
	return e.Fields[0]
}

func (e *UnconfirmedError) Is(target error) bool {
	return target == ErrUnconfirmed
}
