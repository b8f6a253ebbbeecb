package cycles

import "fmt"

// Cut is a selected dependency with its weight.
type Cut struct {
	BeanDependency `yaml:",inline"`
	Weight         float64 `json:"weight" yaml:"weight"`
}

// Analysis is the outcome of running cycle detection and edge selection
// over one graph.
type Analysis struct {
	Components   []string         `json:"components" yaml:"components"`
	Dependencies []BeanDependency `json:"dependencies" yaml:"dependencies"`
	Cycles       []Cycle          `json:"cycles" yaml:"cycles"`
	Cuts         []Cut            `json:"cuts" yaml:"cuts"`
	TotalWeight  float64          `json:"total_weight" yaml:"total_weight"`
}

// Analyze enumerates the cycles of g and selects the edges to cut.
func Analyze(g *Graph) (*Analysis, error) {
	components, err := g.Components()
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	cycles, err := g.Cycles()
	if err != nil {
		return nil, err
	}
	sel := NewEdgeSelector(g.Dependencies())
	a := &Analysis{
		Components:   components,
		Dependencies: g.Edges(),
		Cycles:       cycles,
	}
	for _, e := range sel.SelectEdgesToCut(cycles) {
		w := sel.ComputeWeight(e)
		a.Cuts = append(a.Cuts, Cut{BeanDependency: e, Weight: w})
		a.TotalWeight += w
	}
	return a, nil
}
