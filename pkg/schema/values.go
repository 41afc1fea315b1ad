package schema

import (
	"sort"
	"strconv"
	"strings"
)

// Values maps property keys to current raw values. Domain values are keyed by
// the templated key.
type Values map[string]string

// Clone returns a copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// DomainValues holds the saved values of one domain instance.
type DomainValues struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Properties Values `json:"properties"`
}

// Snapshot is a full set of values: global values plus one entry per domain.
type Snapshot struct {
	Global  Values         `json:"global"`
	Domains []DomainValues `json:"domains"`
}

// SortedDomains returns the domains ordered by ascending id.
func (s Snapshot) SortedDomains() []DomainValues {
	out := append([]DomainValues(nil), s.Domains...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Split returns the trimmed, non-empty options found in value.
func (d DynamicOptions) Split(value string) []string {
	var out []string
	for _, part := range strings.Split(value, d.SeparatorOrDefault()) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Select returns current when it is one of options, otherwise the first
// option. With no options current is returned unchanged.
func Select(current string, options []string) string {
	if len(options) == 0 {
		return current
	}
	for _, option := range options {
		if option == current {
			return current
		}
	}
	return options[0]
}

// LeadingInt parses the leading integer of value the way a lenient number
// input does: "3", " 12 items" and "7.5" yield 3, 12 and 7; anything else
// yields 0.
func LeadingInt(value string) int {
	value = strings.TrimSpace(value)
	end := 0
	if end < len(value) && (value[end] == '-' || value[end] == '+') {
		end++
	}
	start := end
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0
	}
	return n
}
