// Package visibility decides which properties are shown for a set of current
// values. Visibility is derived state: a pure function of the configuration
// and the values, recomputed after every change.
package visibility

import (
	"strings"

	"github.com/goliatone/go-propform/pkg/schema"
)

// Values maps property keys to their current raw value. Domain properties are
// keyed by their templated key.
type Values = schema.Values

// Evaluator decides whether a dependency rule holds for the current value of
// its source property.
type Evaluator interface {
	Eval(key string, rule schema.Dependency, ctx Context) (bool, error)
}

// Context carries the inputs available to an Evaluator.
type Context struct {
	// Value is the current value of rule.Key.
	Value string
	// Values is the full value map being resolved.
	Values Values
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(key string, rule schema.Dependency, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(key string, rule schema.Dependency, ctx Context) (bool, error) {
	return fn(key, rule, ctx)
}

// MatchEvaluator compares the source value and the rule value with
// ValuesMatch.
var MatchEvaluator Evaluator = EvaluatorFunc(func(_ string, rule schema.Dependency, ctx Context) (bool, error) {
	return ValuesMatch(ctx.Value, rule.Value), nil
})

// NormalizeBoolean maps the usual boolean spellings to "true" or "false" and
// lowercases and trims everything else.
func NormalizeBoolean(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "true", "1", "on", "yes":
		return "true"
	case "false", "0", "off", "no":
		return "false"
	}
	return v
}

// ValuesMatch reports whether two raw values are equal once boolean spellings,
// case and surrounding whitespace are normalised.
func ValuesMatch(a, b string) bool {
	return NormalizeBoolean(a) == NormalizeBoolean(b)
}
