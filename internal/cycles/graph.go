// Package cycles analyzes the component injection graph: it enumerates
// elementary dependency cycles and picks a low-cost set of edges whose
// removal breaks all of them. The cut is chosen greedily and is not
// guaranteed to be minimal.
package cycles

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

// InjectionKind is how one component receives another.
type InjectionKind string

const (
	Constructor   InjectionKind = "constructor"
	Field         InjectionKind = "field"
	Setter        InjectionKind = "setter"
	FactoryMethod InjectionKind = "factory_method"
)

// BaseCost ranks how disruptive cutting an edge of that kind is.
// Constructor arguments are needed at construction time; fields and
// setters can be satisfied afterwards.
func BaseCost(k InjectionKind) float64 {
	switch k {
	case Constructor:
		return 3
	case FactoryMethod:
		return 4
	case Field, Setter:
		return 1
	}
	return 1
}

// BeanDependency is one injection edge: From needs To, received through
// Member (a field, parameter or method name).
type BeanDependency struct {
	From   string        `json:"from" yaml:"from"`
	To     string        `json:"to" yaml:"to"`
	Kind   InjectionKind `json:"kind" yaml:"kind"`
	Member string        `json:"member,omitempty" yaml:"member,omitempty"`
}

func (d BeanDependency) String() string {
	return fmt.Sprintf("%s -[%s %s]-> %s", d.From, d.Kind, d.Member, d.To)
}

// less orders dependencies by From, To, Member and Kind.
func (d BeanDependency) less(o BeanDependency) bool {
	if d.From != o.From {
		return d.From < o.From
	}
	if d.To != o.To {
		return d.To < o.To
	}
	if d.Member != o.Member {
		return d.Member < o.Member
	}
	return d.Kind < o.Kind
}

// Cycle is an elementary cycle as the components along it, without
// repeating the first at the end.
type Cycle []string

// Open drops a trailing repeat of the first component, so [A B A] and
// [A B] name the same cycle.
func (c Cycle) Open() Cycle {
	if len(c) > 1 && c[0] == c[len(c)-1] {
		return c[:len(c)-1]
	}
	return c
}

func (c Cycle) String() string {
	if len(c) == 0 {
		return ""
	}
	return strings.Join(c, " -> ") + " -> " + c[0]
}

// Graph is a directed injection graph. Parallel dependencies between the
// same two components are kept; the underlying graph holds one edge per
// pair.
type Graph struct {
	g    graph.Graph[string, string]
	deps map[string][]BeanDependency
	seen map[BeanDependency]bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		g:    graph.New(graph.StringHash, graph.Directed()),
		deps: make(map[string][]BeanDependency),
		seen: make(map[BeanDependency]bool),
	}
}

// FromDependencies builds a graph from dependencies keyed by source.
func FromDependencies(deps map[string][]BeanDependency) (*Graph, error) {
	g := NewGraph()
	keys := make([]string, 0, len(deps))
	for k := range deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, d := range deps[k] {
			if err := g.Add(d); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// AddComponent adds a vertex with no edges.
func (g *Graph) AddComponent(name string) error {
	if err := g.g.AddVertex(name); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return fmt.Errorf("failed to add component %s: %w", name, err)
	}
	return nil
}

// Add records a dependency. Duplicates are ignored.
func (g *Graph) Add(d BeanDependency) error {
	if d.From == "" || d.To == "" {
		return fmt.Errorf("dependency %v needs both ends", d)
	}
	if g.seen[d] {
		return nil
	}
	if err := g.AddComponent(d.From); err != nil {
		return err
	}
	if err := g.AddComponent(d.To); err != nil {
		return err
	}
	if err := g.g.AddEdge(d.From, d.To); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return fmt.Errorf("failed to add dependency %v: %w", d, err)
	}
	g.seen[d] = true
	g.deps[d.From] = append(g.deps[d.From], d)
	return nil
}

// Dependencies returns the dependencies keyed by source.
func (g *Graph) Dependencies() map[string][]BeanDependency {
	return g.deps
}

// Edges returns every dependency in From, To, Member order.
func (g *Graph) Edges() []BeanDependency {
	var out []BeanDependency
	for _, ds := range g.deps {
		out = append(out, ds...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// Components returns every vertex sorted by name.
func (g *Graph) Components() ([]string, error) {
	adj, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(adj))
	for v := range adj {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// Cycles enumerates every elementary cycle with Johnson's algorithm, run
// separately inside each strongly connected component. Each cycle starts
// at its smallest component name and cycles are returned in a stable order.
func (g *Graph) Cycles() ([]Cycle, error) {
	adj, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read adjacency: %w", err)
	}
	sccs, err := graph.StronglyConnectedComponents(g.g)
	if err != nil {
		return nil, fmt.Errorf("failed to compute components: %w", err)
	}

	succ := make(map[string][]string, len(adj))
	for v, targets := range adj {
		for w := range targets {
			succ[v] = append(succ[v], w)
		}
		sort.Strings(succ[v])
	}

	var out []Cycle
	for _, scc := range sccs {
		sort.Strings(scc)
		if len(scc) == 1 {
			if _, loop := adj[scc[0]][scc[0]]; loop {
				out = append(out, Cycle{scc[0]})
			}
			continue
		}
		out = append(out, johnson(scc, succ)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// johnson finds the elementary cycles of one strongly connected component
// whose members are sorted. Cycles through the i-th member only use members
// from i on, so each cycle is found exactly once.
func johnson(members []string, succ map[string][]string) []Cycle {
	var out []Cycle
	for i, start := range members {
		allowed := make(map[string]bool, len(members)-i)
		for _, m := range members[i:] {
			allowed[m] = true
		}
		blocked := make(map[string]bool)
		blockedBy := make(map[string]map[string]bool)
		var stack []string

		var unblock func(v string)
		unblock = func(v string) {
			blocked[v] = false
			for w := range blockedBy[v] {
				delete(blockedBy[v], w)
				if blocked[w] {
					unblock(w)
				}
			}
		}

		var circuit func(v string) bool
		circuit = func(v string) bool {
			found := false
			stack = append(stack, v)
			blocked[v] = true
			for _, w := range succ[v] {
				if !allowed[w] {
					continue
				}
				if w == start {
					out = append(out, append(Cycle(nil), stack...))
					found = true
				} else if !blocked[w] && circuit(w) {
					found = true
				}
			}
			if found {
				unblock(v)
			} else {
				for _, w := range succ[v] {
					if !allowed[w] {
						continue
					}
					if blockedBy[w] == nil {
						blockedBy[w] = make(map[string]bool)
					}
					blockedBy[w][v] = true
				}
			}
			stack = stack[:len(stack)-1]
			return found
		}
		circuit(start)
	}
	return out
}
