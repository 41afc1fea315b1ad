package schema

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-propform/pkg/keytemplate"
)

var (
	validateOnce sync.Once
	structs      *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		structs = validator.New()
	})
	return structs
}

// Validate checks the configuration for authoring mistakes: missing keys,
// keys carrying more than one placeholder, and self-referencing rules.
// Dependency cycles are reported by the visibility graph.
func (c *Configuration) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: configuration is nil", ErrMalformedSchema)
	}
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("schema: invalid %s: failed %q", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("schema: validate: %w", err)
	}

	var errs []error
	seen := make(map[string]struct{})
	c.Walk(func(ref Ref) bool {
		prop := ref.Property
		if prop.Field == nil {
			errs = append(errs, fmt.Errorf("schema: property %q has no type", prop.Key))
		}
		if n := keytemplate.PlaceholderCount(prop.Key); n > 1 {
			errs = append(errs, fmt.Errorf("schema: property %q has %d placeholders", prop.Key, n))
		}
		if _, dup := seen[prop.Key]; dup {
			errs = append(errs, fmt.Errorf("schema: duplicate property key %q", prop.Key))
		}
		seen[prop.Key] = struct{}{}
		if prop.DependsOn != nil && prop.DependsOn.Key == prop.Key {
			errs = append(errs, fmt.Errorf("schema: property %q depends on itself", prop.Key))
		}
		if prop.RepeatBasedOn != nil && prop.RepeatBasedOn.Key == prop.Key {
			errs = append(errs, fmt.Errorf("schema: property %q repeats on itself", prop.Key))
		}
		return true
	})
	return errors.Join(errs...)
}
