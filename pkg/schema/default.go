package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultValue is a property default, either a single string or a list used
// by repeated fields (one entry per index).
type DefaultValue struct {
	text  string
	items []string
	list  bool
}

// StringDefault returns a scalar default.
func StringDefault(value string) DefaultValue {
	return DefaultValue{text: value}
}

// ListDefault returns a list default.
func ListDefault(items ...string) DefaultValue {
	return DefaultValue{items: append([]string(nil), items...), list: true}
}

// String returns the scalar value. List defaults join their entries with a
// comma.
func (d DefaultValue) String() string {
	if d.list {
		return strings.Join(d.items, ",")
	}
	return d.text
}

// IsList reports whether the default was declared as an array.
func (d DefaultValue) IsList() bool {
	return d.list
}

// Items returns a copy of the list entries.
func (d DefaultValue) Items() []string {
	return append([]string(nil), d.items...)
}

// At returns the 1-based entry of a list default, or "" when absent.
func (d DefaultValue) At(index int) string {
	if !d.list || index < 1 || index > len(d.items) {
		return ""
	}
	return d.items[index-1]
}

// IsZero reports whether no default was set.
func (d DefaultValue) IsZero() bool {
	return !d.list && d.text == ""
}

// MarshalJSON writes either a string or an array.
func (d DefaultValue) MarshalJSON() ([]byte, error) {
	if d.list {
		items := d.items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(d.text)
}

// UnmarshalJSON accepts strings, arrays of scalars, numbers, booleans and null.
func (d *DefaultValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = DefaultValue{}
		return nil
	}
	if data[0] == '[' {
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("schema: decode default list: %w", err)
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			items = append(items, scalarString(item))
		}
		*d = DefaultValue{items: items, list: true}
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("schema: decode default: %w", err)
	}
	*d = DefaultValue{text: scalarString(raw)}
	return nil
}

func scalarString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		if value {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}
