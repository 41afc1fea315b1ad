package visibility

import (
	"github.com/goliatone/go-propform/pkg/schema"
)

// DefaultMaxIterations bounds the fixed-point loop in Resolve.
const DefaultMaxIterations = 10

// Graph is the dependency structure of a configuration, built once per load:
// adjacency from each source property to the properties depending on it.
type Graph struct {
	cfg       *schema.Configuration
	nodes     []node
	index     map[string]int
	order     []int
	evaluator Evaluator
	maxIter   int
}

type node struct {
	ref    schema.Ref
	key    string
	rule   *schema.Dependency
	source int // -1 when the rule's key resolves to no property
	deps   []int
}

// Option customises a Graph.
type Option func(*Graph)

// WithEvaluator replaces MatchEvaluator.
func WithEvaluator(e Evaluator) Option {
	return func(g *Graph) {
		if e != nil {
			g.evaluator = e
		}
	}
}

// WithMaxIterations overrides DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxIter = n
		}
	}
}

// NewGraph indexes every property of cfg and links dependency rules to their
// source. Cycles are rejected with a *CycleError.
func NewGraph(cfg *schema.Configuration, opts ...Option) (*Graph, error) {
	g := &Graph{
		cfg:       cfg,
		index:     make(map[string]int),
		evaluator: MatchEvaluator,
		maxIter:   DefaultMaxIterations,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	cfg.Walk(func(ref schema.Ref) bool {
		if _, dup := g.index[ref.Property.Key]; !dup {
			g.index[ref.Property.Key] = len(g.nodes)
		}
		g.nodes = append(g.nodes, node{ref: ref, key: ref.Property.Key, rule: ref.Property.DependsOn, source: -1})
		return true
	})

	for i := range g.nodes {
		rule := g.nodes[i].rule
		if rule == nil || rule.Key == "" {
			continue
		}
		src, ok := g.lookup(rule.Key)
		if !ok {
			continue
		}
		g.nodes[i].source = src
		g.nodes[src].deps = append(g.nodes[src].deps, i)
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}
	g.order = g.topoOrder()
	return g, nil
}

// MustNewGraph panics when NewGraph fails.
func MustNewGraph(cfg *schema.Configuration, opts ...Option) *Graph {
	g, err := NewGraph(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// Configuration returns the configuration the graph was built from.
func (g *Graph) Configuration() *schema.Configuration {
	return g.cfg
}

// Dependents returns the keys whose visibility depends directly on key.
func (g *Graph) Dependents(key string) []string {
	idx, ok := g.lookup(key)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.nodes[idx].deps))
	for _, dep := range g.nodes[idx].deps {
		out = append(out, g.nodes[dep].key)
	}
	return out
}

func (g *Graph) lookup(key string) (int, bool) {
	if idx, ok := g.index[key]; ok {
		return idx, true
	}
	prop, ok := g.cfg.FindProperty(key)
	if !ok {
		return 0, false
	}
	idx, ok := g.index[prop.Key]
	return idx, ok
}

func (g *Graph) findCycle() []string {
	visited := make([]bool, len(g.nodes))
	onStack := make([]bool, len(g.nodes))
	var path []int

	var visit func(i int) []string
	visit = func(i int) []string {
		visited[i] = true
		onStack[i] = true
		path = append(path, i)
		for _, next := range g.nodes[i].deps {
			if !visited[next] {
				if cycle := visit(next); cycle != nil {
					return cycle
				}
				continue
			}
			if onStack[next] {
				return g.cyclePath(path, next)
			}
		}
		onStack[i] = false
		path = path[:len(path)-1]
		return nil
	}

	for i := range g.nodes {
		if !visited[i] {
			if cycle := visit(i); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func (g *Graph) cyclePath(path []int, start int) []string {
	var out []string
	for i, idx := range path {
		if idx == start {
			for _, n := range path[i:] {
				out = append(out, g.nodes[n].key)
			}
			break
		}
	}
	return append(out, g.nodes[start].key)
}

// topoOrder lists sources before their dependents so a single pass settles an
// acyclic graph.
func (g *Graph) topoOrder() []int {
	inDegree := make([]int, len(g.nodes))
	for i := range g.nodes {
		if g.nodes[i].source >= 0 {
			inDegree[i]++
		}
	}
	queue := make([]int, 0, len(g.nodes))
	for i := range g.nodes {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	order := make([]int, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)
		for _, dep := range g.nodes[current].deps {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	return order
}
