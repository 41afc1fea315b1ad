package session

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-propform/pkg/codec/properties"
	"github.com/goliatone/go-propform/pkg/keytemplate"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/visibility"
)

// MaxRepeat caps the repeat instances presented for editing and confirmation.
// Exports still write the raw count.
const MaxRepeat = 20

// RequiresConfirmation reports whether prop needs an explicit confirmation
// while holding value. Only properties flagged needsConfirmation qualify:
// text, url and password always, numbers with confirmOnZero only while the
// value is "0" or empty.
func RequiresConfirmation(prop schema.Property, value string) bool {
	if !prop.NeedsConfirmation {
		return false
	}
	switch f := prop.Field.(type) {
	case schema.TextField, schema.URLField, schema.PasswordField:
		return true
	case schema.NumberField:
		if !f.ConfirmOnZero {
			return false
		}
		value = strings.TrimSpace(value)
		return value == "0" || value == ""
	default:
		return false
	}
}

// NeedsConfirmation reports whether key currently requires a confirmation.
func (s *Session) NeedsConfirmation(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.resolveKey(key)
	if err != nil {
		return false, err
	}
	return RequiresConfirmation(t.prop, s.valueOf(t)), nil
}

// Confirm records that the user accepted value for key. value must equal the
// current value; a later edit invalidates the confirmation.
func (s *Session) Confirm(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolveKey(key)
	if err != nil {
		return err
	}
	if current := s.valueOf(t); current != value {
		return ErrConfirmationMismatch
	}
	s.confirmed[t.concrete()] = value
	return nil
}

// Revoke clears the confirmation of key.
func (s *Session) Revoke(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolveKey(key)
	if err != nil {
		return err
	}
	delete(s.confirmed, t.concrete())
	return nil
}

// IsConfirmed reports whether key holds a confirmed value.
func (s *Session) IsConfirmed(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.resolveKey(key)
	if err != nil {
		return false
	}
	return s.isConfirmed(t)
}

func (s *Session) isConfirmed(t target) bool {
	v, ok := s.confirmed[t.concrete()]
	return ok && v == s.valueOf(t)
}

// Unconfirmed lists visible fields that need a confirmation they do not have,
// global fields first, then each domain in id order. Hidden fields are
// skipped.
func (s *Session) Unconfirmed() ([]Pending, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unconfirmed()
}

func (s *Session) unconfirmed() ([]Pending, error) {
	var out []Pending
	check := func(t target) {
		value := s.valueOf(t)
		if !RequiresConfirmation(t.prop, value) || s.isConfirmed(t) {
			return
		}
		label := t.prop.Label
		if t.repeat > 0 {
			label += " " + strconv.Itoa(t.repeat)
		}
		out = append(out, Pending{
			Key:      t.concrete(),
			Property: t.prop.Key,
			Label:    label,
			Domain:   t.domain,
			Value:    value,
		})
	}

	for _, category := range s.cfg.GlobalProperties {
		for _, prop := range category.Properties {
			if !s.state.Visible(prop.Key) {
				continue
			}
			if prop.RepeatBasedOn == nil {
				check(target{key: prop.Key, prop: prop})
				continue
			}
			count := min(properties.RepeatCount(s.cfg, s.global, prop), MaxRepeat)
			for i := 1; i <= count; i++ {
				key := keytemplate.ExpandRepeat(prop.Key, prop.RepeatPlaceholder(), i)
				check(target{key: key, prop: prop, repeat: i})
			}
		}
	}

	for _, d := range s.domains {
		state := s.state
		if d.ID != s.active {
			var err error
			if state, err = s.graph.Resolve(s.merged(d.ID)); err != nil {
				return nil, err
			}
		}
		for _, category := range s.cfg.DomainProperties {
			for _, prop := range category.Properties {
				if !state.Visible(prop.Key) {
					continue
				}
				check(target{key: prop.Key, domain: d.ID, prop: prop})
			}
		}
	}
	return out, nil
}

// DomainState resolves visibility for domain id without switching to it.
func (s *Session) DomainState(id int) (visibility.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == s.active {
		return s.state, nil
	}
	if s.domain(id) == nil {
		return visibility.State{}, ErrUnknownDomain
	}
	return s.graph.Resolve(s.merged(id))
}

func (s *Session) dropConfirmations(id int) {
	for _, category := range s.cfg.DomainProperties {
		for _, prop := range category.Properties {
			delete(s.confirmed, keytemplate.Expand(prop.Key, id))
		}
	}
}

// Confirmations returns the recorded confirmations that still match their
// field's current value, keyed by the flat-text key.
func (s *Session) Confirmations() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.confirmed))
	for key, value := range s.confirmed {
		t, err := s.resolveKey(key)
		if err != nil || s.valueOf(t) != value {
			continue
		}
		out[key] = value
	}
	return out
}
