package properties

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/goliatone/go-propform/pkg/schema"
)

// maxLineBytes bounds a single line; html values can be long.
const maxLineBytes = 1 << 20

var htmlTagPattern = regexp.MustCompile(`(?is)<[a-z].*>`)

// Entry is one key=value line.
type Entry struct {
	Line  int
	Key   string
	Value string
}

// ParseError reports a malformed line in strict mode.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("properties: line %d: %s", e.Line, e.Message)
}

// ParseOption customises Parse.
type ParseOption func(*parseOptions)

type parseOptions struct {
	strict bool
}

// Strict turns lines without a separator or with an empty key into
// *ParseError instead of skipping them.
func Strict() ParseOption {
	return func(o *parseOptions) {
		o.strict = true
	}
}

// Parse reads key=value entries. Blank lines and lines starting with "#" or
// "!" are skipped. Each line is split at the first "=" or ":" and both sides
// are trimmed.
func Parse(r io.Reader, opts ...ParseOption) ([]Entry, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var entries []Entry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			if o.strict {
				return nil, &ParseError{Line: lineNo, Message: "missing separator"}
			}
			continue
		}
		key := strings.TrimSpace(line[:sep])
		if key == "" {
			if o.strict {
				return nil, &ParseError{Line: lineNo, Message: "empty key"}
			}
			continue
		}
		entries = append(entries, Entry{Line: lineNo, Key: key, Value: strings.TrimSpace(line[sep+1:])})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("properties: read line %d: %w", lineNo+1, err)
	}
	return entries, nil
}

// InferType guesses a field type from a raw value. Booleans report the
// spelling they were written in.
func InferType(value string) (schema.FieldType, schema.BooleanType) {
	switch {
	case value == "true" || value == "false":
		return schema.TypeBoolean, schema.BooleanString
	case value == "1" || value == "0":
		return schema.TypeBoolean, schema.BooleanNumber
	case isDigits(value):
		return schema.TypeNumber, ""
	case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
		return schema.TypeURL, ""
	case htmlTagPattern.MatchString(value):
		return schema.TypeHTML, ""
	default:
		return schema.TypeText, ""
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
