package visibility

import (
	"fmt"

	"github.com/goliatone/go-propform/pkg/schema"
)

// State is the derived visibility for one set of values.
type State struct {
	visible map[string]bool
	// Empty lists categories whose properties are all hidden, in
	// configuration order.
	Empty []EmptyCategory
}

// EmptyCategory is a category with every property hidden, plus the
// dependencies the user has to satisfy to reveal them.
type EmptyCategory struct {
	Scope schema.Scope  `json:"scope"`
	Index int           `json:"index"`
	Name  string        `json:"name"`
	Unmet []Requirement `json:"unmet,omitempty"`
}

// Requirement is one source property and the values that reveal dependents.
type Requirement struct {
	Key    string   `json:"key"`
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// Visible reports whether key is shown. Unknown keys are visible.
func (s State) Visible(key string) bool {
	v, ok := s.visible[key]
	return !ok || v
}

// Hidden returns the hidden keys in no particular order.
func (s State) Hidden() []string {
	var out []string
	for key, v := range s.visible {
		if !v {
			out = append(out, key)
		}
	}
	return out
}

// Map returns a copy of the visibility assignment.
func (s State) Map() map[string]bool {
	out := make(map[string]bool, len(s.visible))
	for key, v := range s.visible {
		out[key] = v
	}
	return out
}

// CategoryEmpty reports whether the category at scope/index is empty.
func (s State) CategoryEmpty(scope schema.Scope, index int) (EmptyCategory, bool) {
	for _, cat := range s.Empty {
		if cat.Scope == scope && cat.Index == index {
			return cat, true
		}
	}
	return EmptyCategory{}, false
}

// Resolve computes visibility for values. A property is visible when its rule
// matches the source value and the source itself is visible; a rule whose
// source does not exist hides the property. The pass repeats until nothing
// changes, failing with ErrCyclicDependency if the iteration cap is reached.
func (g *Graph) Resolve(values Values) (State, error) {
	visible := make([]bool, len(g.nodes))
	for i := range visible {
		visible[i] = true
	}

	settled := false
	for iter := 0; iter < g.maxIter; iter++ {
		changed := false
		for _, i := range g.order {
			next, err := g.evaluate(i, visible, values)
			if err != nil {
				return State{}, err
			}
			if next != visible[i] {
				visible[i] = next
				changed = true
			}
		}
		if !changed {
			settled = true
			break
		}
	}
	if !settled {
		return State{}, fmt.Errorf("%w: no fixed point after %d iterations", ErrCyclicDependency, g.maxIter)
	}

	state := State{visible: make(map[string]bool, len(g.nodes))}
	for i, n := range g.nodes {
		if _, seen := state.visible[n.key]; !seen {
			state.visible[n.key] = visible[i]
		}
	}
	state.Empty = g.emptyCategories(visible)
	return state, nil
}

// Resolve builds a graph for cfg and resolves values against it.
func Resolve(cfg *schema.Configuration, values Values) (State, error) {
	g, err := NewGraph(cfg)
	if err != nil {
		return State{}, err
	}
	return g.Resolve(values)
}

func (g *Graph) evaluate(i int, visible []bool, values Values) (bool, error) {
	n := g.nodes[i]
	if n.rule == nil || n.rule.Key == "" {
		return true, nil
	}
	if n.source < 0 {
		return false, nil
	}

	value := g.sourceValue(n, values)
	ok, err := g.evaluator.Eval(n.key, *n.rule, Context{Value: value, Values: values})
	if err != nil {
		return false, fmt.Errorf("visibility: evaluate %q: %w", n.key, err)
	}
	return ok && visible[n.source], nil
}

func (g *Graph) sourceValue(n node, values Values) string {
	if v, ok := values[n.rule.Key]; ok {
		return v
	}
	src := g.nodes[n.source]
	if v, ok := values[src.key]; ok {
		return v
	}
	return src.ref.Property.Default.String()
}

func (g *Graph) emptyCategories(visible []bool) []EmptyCategory {
	type bucket struct {
		scope   schema.Scope
		index   int
		total   int
		visible int
		members []int
	}
	var buckets []*bucket
	byPos := make(map[[2]int]*bucket)
	for i, n := range g.nodes {
		pos := [2]int{int(n.ref.Scope), n.ref.Category}
		b, ok := byPos[pos]
		if !ok {
			b = &bucket{scope: n.ref.Scope, index: n.ref.Category}
			byPos[pos] = b
			buckets = append(buckets, b)
		}
		b.total++
		b.members = append(b.members, i)
		if visible[i] {
			b.visible++
		}
	}

	var out []EmptyCategory
	for _, b := range buckets {
		if b.total == 0 || b.visible > 0 {
			continue
		}
		category := g.cfg.Categories(b.scope)[b.index]
		out = append(out, EmptyCategory{
			Scope: b.scope,
			Index: b.index,
			Name:  category.Name,
			Unmet: g.requirements(b.members),
		})
	}
	return out
}

func (g *Graph) requirements(members []int) []Requirement {
	var out []Requirement
	pos := make(map[string]int)
	for _, i := range members {
		rule := g.nodes[i].rule
		if rule == nil || rule.Key == "" {
			continue
		}
		idx, ok := pos[rule.Key]
		if !ok {
			label := rule.Key
			if prop, found := g.cfg.FindProperty(rule.Key); found && prop.Label != "" {
				label = prop.Label
			}
			out = append(out, Requirement{Key: rule.Key, Label: label})
			idx = len(out) - 1
			pos[rule.Key] = idx
		}
		if !contains(out[idx].Values, rule.Value) {
			out[idx].Values = append(out[idx].Values, rule.Value)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
