package schema

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// LabelFromKey derives a human label from the last dot-separated segment of a
// property key: "portal.maxRetryCount" becomes "Max Retry Count".
func LabelFromKey(key string) string {
	key = strings.TrimSpace(key)
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		key = key[idx+1:]
	}
	return Humanize(key)
}

// Humanize splits name on separators and camelCase boundaries and upper-cases
// the first letter of each word.
func Humanize(name string) string {
	if name == "" {
		return ""
	}
	var segments []string
	for _, word := range splitWordsPattern.Split(name, -1) {
		if word == "" {
			continue
		}
		for _, part := range strings.Fields(splitCamel(word)) {
			segments = append(segments, upperFirst(part))
		}
	}
	return strings.Join(segments, " ")
}

// CategoryName formats a dotted category prefix: "app.mailServer" becomes
// "App - Mail Server".
func CategoryName(prefix string) string {
	parts := strings.Split(prefix, ".")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if label := Humanize(part); label != "" {
			out = append(out, label)
		}
	}
	return strings.Join(out, " - ")
}

func splitCamel(input string) string {
	var out strings.Builder
	var prev rune
	for i, r := range input {
		if i > 0 && isLower(prev) && isUpper(r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
		prev = r
	}
	return out.String()
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') }

func upperFirst(word string) string {
	if word == "" {
		return ""
	}
	r := []rune(word)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
