package visibility

import (
	"errors"
	"strings"
)

// ErrCyclicDependency reports dependency rules that never settle.
var ErrCyclicDependency = errors.New("visibility: cyclic dependency")

// CycleError names the keys forming a dependency cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "visibility: cyclic dependency: " + strings.Join(e.Path, " -> ")
}

// Unwrap lets errors.Is match ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}
