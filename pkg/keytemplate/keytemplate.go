// Package keytemplate expands and collapses templated property keys. A
// templated key carries a single placeholder token standing in for a domain or
// repetition index, e.g. "app.domain{N}.name" expands to "app.domain2.name".
package keytemplate

import (
	"regexp"
	"strconv"
	"strings"
)

// Placeholder is the token that marks the index position inside a templated
// key and inside a domain key pattern.
const Placeholder = "{N}"

// DefaultPattern is used when a configuration does not declare its own domain
// key pattern.
const DefaultPattern = "domain{N}"

// Pattern is a parsed domain key pattern such as "domain{N}". The zero value
// never matches anything.
type Pattern struct {
	raw     string
	prefix  string
	suffix  string
	split   bool
	numeric *regexp.Regexp
	literal string
}

// ParsePattern compiles a domain key pattern. Patterns that do not split into
// exactly two parts around the placeholder still match keys that contain the
// pattern text literally, but ToTemplate leaves keys untouched for them.
func ParsePattern(pattern string) Pattern {
	if pattern == "" {
		return Pattern{}
	}

	p := Pattern{raw: pattern, literal: strings.ToLower(pattern)}
	parts := strings.Split(pattern, Placeholder)
	if len(parts) == 2 {
		p.prefix, p.suffix, p.split = parts[0], parts[1], true
		p.numeric = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p.prefix) + `(\d+)` + regexp.QuoteMeta(p.suffix))
	}
	return p
}

// String returns the pattern text.
func (p Pattern) String() string {
	return p.raw
}

// Prefix returns the literal text preceding the placeholder.
func (p Pattern) Prefix() string {
	return p.prefix
}

// Suffix returns the literal text following the placeholder.
func (p Pattern) Suffix() string {
	return p.suffix
}

// Matches reports whether key belongs to a domain, either in concrete form
// (prefix, digits, suffix) or in template form (the pattern text itself).
// Comparison is case-insensitive.
func (p Pattern) Matches(key string) bool {
	if p.raw == "" || key == "" {
		return false
	}
	if strings.Contains(strings.ToLower(key), p.literal) {
		return true
	}
	if p.numeric == nil {
		return false
	}
	return p.numeric.MatchString(key)
}

// ToTemplate replaces the first digit run found between the pattern prefix and
// suffix with the placeholder. Only the digits are rewritten so the remaining
// bytes of the key are preserved.
func (p Pattern) ToTemplate(key string) string {
	if !p.split || key == "" {
		return key
	}
	loc := p.numeric.FindStringSubmatchIndex(key)
	if loc == nil || len(loc) < 4 {
		return key
	}
	return key[:loc[2]] + Placeholder + key[loc[3]:]
}

// ReplaceAll replaces every concrete occurrence of the pattern (prefix, digits,
// suffix) in s with repl.
func (p Pattern) ReplaceAll(s, repl string) string {
	if !p.split {
		return s
	}
	return p.numeric.ReplaceAllLiteralString(s, repl)
}

// Index extracts the numeric index from a concrete domain key. The boolean is
// false when the key does not carry one.
func (p Pattern) Index(key string) (int, bool) {
	if !p.split {
		return 0, false
	}
	match := p.numeric.FindStringSubmatch(key)
	if len(match) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// MatchesDomainPattern reports whether key belongs to the domain described by
// pattern.
func MatchesDomainPattern(key, pattern string) bool {
	return ParsePattern(pattern).Matches(key)
}

// ToTemplate rewrites a concrete domain key into its templated form.
func ToTemplate(key, pattern string) string {
	return ParsePattern(pattern).ToTemplate(key)
}

// Expand replaces every placeholder in templateKey with index.
func Expand(templateKey string, index int) string {
	return strings.ReplaceAll(templateKey, Placeholder, strconv.Itoa(index))
}

// IsTemplate reports whether key carries the placeholder token.
func IsTemplate(key string) bool {
	return strings.Contains(key, Placeholder)
}

// PlaceholderCount returns how many placeholder tokens key carries.
func PlaceholderCount(key string) int {
	return strings.Count(key, Placeholder)
}

// ExpandRepeat substitutes a repetition index into key. The first occurrence
// of placeholder is replaced, followed by the "[N]" and "{N}" aliases, matching
// how repeated keys are authored.
func ExpandRepeat(key, placeholder string, index int) string {
	n := strconv.Itoa(index)
	if placeholder != "" {
		key = strings.Replace(key, placeholder, n, 1)
	}
	key = strings.Replace(key, "[N]", n, 1)
	return strings.Replace(key, Placeholder, n, 1)
}
