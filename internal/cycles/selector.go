package cycles

import (
	"sort"
)

// degreePenalty is the weight added per dependency pointing at the target.
const degreePenalty = 0.5

// EdgeSelector chooses dependencies to cut so that no cycle remains.
type EdgeSelector struct {
	deps     map[string][]BeanDependency
	inDegree map[string]int
}

// NewEdgeSelector creates a selector over dependencies keyed by source.
func NewEdgeSelector(deps map[string][]BeanDependency) *EdgeSelector {
	in := make(map[string]int)
	for _, ds := range deps {
		for _, d := range ds {
			in[d.To]++
		}
	}
	return &EdgeSelector{deps: deps, inDegree: in}
}

// ComputeWeight is the cost of cutting e: the base cost of its kind plus a
// penalty for every dependency on the same target. It depends only on the
// kind and the graph, never on selection order.
func (s *EdgeSelector) ComputeWeight(e BeanDependency) float64 {
	return BaseCost(e.Kind) + degreePenalty*float64(s.inDegree[e.To])
}

// EdgesOf returns every dependency between consecutive components of c,
// including the closing one back to the start. A closed cycle is opened first.
func (s *EdgeSelector) EdgesOf(c Cycle) []BeanDependency {
	c = c.Open()
	var out []BeanDependency
	for i, from := range c {
		to := c[(i+1)%len(c)]
		for _, d := range s.deps[from] {
			if d.To == to {
				out = append(out, d)
			}
		}
	}
	return out
}

// SelectEdgesToCut picks dependencies greedily until every cycle contains
// one: each round takes the edge covering the most still-uncovered cycles
// per unit of weight. Ties go to the lighter edge, then by From, To and
// Member. Greedy choice can cost more than the optimum and that outcome is
// kept as is. Parallel dependencies make one component cycle into several
// dependency cycles, all of which must be covered. Cycles may be given
// closed, ending on their start. Cycles with no known dependency cannot be
// covered and are skipped.
func (s *EdgeSelector) SelectEdgesToCut(cycles []Cycle) []BeanDependency {
	containing := make(map[BeanDependency][]int)
	var candidates []BeanDependency
	uncovered := make(map[int]bool)
	n := 0
	for _, c := range cycles {
		for _, path := range s.paths(c.Open()) {
			uncovered[n] = true
			for _, e := range path {
				if _, ok := containing[e]; !ok {
					candidates = append(candidates, e)
				}
				containing[e] = append(containing[e], n)
			}
			n++
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].less(candidates[j]) })

	var cut []BeanDependency
	for len(uncovered) > 0 {
		best, bestCount, bestWeight := -1, 0, 0.0
		for i, e := range candidates {
			count := 0
			for _, c := range containing[e] {
				if uncovered[c] {
					count++
				}
			}
			if count == 0 {
				continue
			}
			w := s.ComputeWeight(e)
			if best < 0 || better(count, w, bestCount, bestWeight) {
				best, bestCount, bestWeight = i, count, w
			}
		}
		if best < 0 {
			break
		}
		e := candidates[best]
		cut = append(cut, e)
		for _, c := range containing[e] {
			delete(uncovered, c)
		}
	}
	return cut
}

// paths expands c into every choice of one dependency per step.
func (s *EdgeSelector) paths(c Cycle) [][]BeanDependency {
	out := [][]BeanDependency{nil}
	for i, from := range c {
		to := c[(i+1)%len(c)]
		var step []BeanDependency
		for _, d := range s.deps[from] {
			if d.To == to {
				step = append(step, d)
			}
		}
		if len(step) == 0 {
			return nil
		}
		next := make([][]BeanDependency, 0, len(out)*len(step))
		for _, p := range out {
			for _, d := range step {
				next = append(next, append(append([]BeanDependency(nil), p...), d))
			}
		}
		out = next
	}
	return out
}

// better compares count/weight ratios without dividing. Candidates are
// visited in From, To, Member order, so an exact tie keeps the earlier.
func better(count int, w float64, bestCount int, bestWeight float64) bool {
	lhs, rhs := float64(count)*bestWeight, float64(bestCount)*w
	if lhs != rhs {
		return lhs > rhs
	}
	return w < bestWeight
}

// TotalWeight sums the weights of edges.
func (s *EdgeSelector) TotalWeight(edges []BeanDependency) float64 {
	total := 0.0
	for _, e := range edges {
		total += s.ComputeWeight(e)
	}
	return total
}
