package render

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goliatone/go-propform/pkg/form"
	"github.com/goliatone/go-propform/pkg/keytemplate"
	"github.com/goliatone/go-propform/pkg/session"
)

// ConfirmMessage is attached to fields that block an export.
const ConfirmMessage = "Confirm this value before exporting"

// ErrorMapping splits an error payload into field-level messages keyed by the
// concrete field key and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// dropping duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload assigns payload messages to fields of f. Keys may be
// concrete keys ("portal.domain2.name"), templated domain keys (resolved
// against the active domain) or value-document pointers such as
// "/global/portal.url" and "/domains/domain2/portal.domain{N}.name". Keys that
// match no field become form-level messages.
func MapErrorPayload(f form.Form, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	keys := fieldKeys(f)
	for raw, messages := range payload {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			continue
		}
		key, ok := mapErrorKey(raw, f.ActiveDomain, keys)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[key] = append(mapping.Fields[key], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// UnconfirmedErrors turns an export blocked by *session.UnconfirmedError into
// field messages plus a form-level summary naming the first field. Other
// errors become a single form-level message.
func UnconfirmedErrors(err error) ErrorMapping {
	if err == nil {
		return ErrorMapping{}
	}
	var uerr *session.UnconfirmedError
	if !errors.As(err, &uerr) {
		return ErrorMapping{Form: []string{err.Error()}}
	}

	mapping := ErrorMapping{Fields: make(map[string][]string, len(uerr.Fields))}
	for _, field := range uerr.Fields {
		mapping.Fields[field.Key] = []string{ConfirmMessage}
	}
	first := uerr.First()
	label := first.Label
	if label == "" {
		label = first.Key
	}
	summary := label + " needs confirmation"
	if n := len(uerr.Fields); n > 1 {
		summary += " (" + strconv.Itoa(n-1) + " more)"
	}
	mapping.Form = []string{summary}
	return mapping
}

func fieldKeys(f form.Form) map[string]string {
	out := make(map[string]string)
	add := func(field form.Field) {
		out[field.Key] = field.Key
		if _, taken := out[field.Property]; !taken {
			out[field.Property] = field.Key
		}
	}
	for _, sections := range [][]form.Section{f.Global, f.Domain} {
		for _, section := range sections {
			for _, field := range section.Fields {
				add(field)
				if field.Repeat != nil {
					for _, instance := range field.Repeat.Instances {
						out[instance.Key] = instance.Key
					}
				}
			}
		}
	}
	return out
}

func mapErrorKey(raw string, active int, keys map[string]string) (string, bool) {
	key := strings.TrimSpace(raw)
	if isFormLevelKey(key) {
		return "", false
	}
	key = strings.TrimLeft(strings.TrimPrefix(key, "$."), "#/$")

	switch {
	case strings.HasPrefix(key, "global/"):
		key = strings.TrimPrefix(key, "global/")
	case strings.HasPrefix(key, "domains/"):
		rest := strings.TrimPrefix(key, "domains/")
		domain, prop, ok := strings.Cut(rest, "/")
		if !ok {
			return "", false
		}
		id, err := strconv.Atoi(strings.TrimPrefix(domain, "domain"))
		if err != nil || id < 1 {
			return "", false
		}
		if _, known := keys[prop]; !known || !keytemplate.IsTemplate(prop) {
			return "", false
		}
		return keytemplate.Expand(prop, id), true
	default:
		if active > 0 && keytemplate.IsTemplate(key) {
			key = keytemplate.Expand(key, active)
		}
	}

	concrete, ok := keys[key]
	return concrete, ok
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
