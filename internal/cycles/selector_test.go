package cycles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Cycle Detection and Edge Selection:
// - A two-node field cycle is broken by one cut
// - A field edge is cut in preference to constructor edges
// - Weights combine the kind's base cost and the target's in-degree
// - Greedy selection keeps its suboptimal answer on overlapping cycles
// - Every cycle contains a cut edge after selection
// - Self-loops and cycles sharing an edge are each enumerated once
// - Parallel dependencies between two components are all covered
// - Closed cycles ending on their start are opened before selection
// - An acyclic graph needs no cuts

func dep(from, to string, kind InjectionKind, member string) BeanDependency {
	return BeanDependency{From: from, To: to, Kind: kind, Member: member}
}

func buildGraph(t *testing.T, deps ...BeanDependency) *Graph {
	t.Helper()
	g := NewGraph()
	for _, d := range deps {
		require.NoError(t, g.Add(d))
	}
	return g
}

func analyze(t *testing.T, deps ...BeanDependency) *Analysis {
	t.Helper()
	a, err := Analyze(buildGraph(t, deps...))
	require.NoError(t, err)
	return a
}

func cutEdges(a *Analysis) []BeanDependency {
	out := make([]BeanDependency, 0, len(a.Cuts))
	for _, c := range a.Cuts {
		out = append(out, c.BeanDependency)
	}
	return out
}

// assertCovered checks that removing the cuts leaves the graph acyclic.
func assertCovered(t *testing.T, a *Analysis) {
	t.Helper()
	cut := make(map[BeanDependency]bool)
	for _, c := range a.Cuts {
		cut[c.BeanDependency] = true
	}
	rest := NewGraph()
	for _, d := range a.Dependencies {
		if !cut[d] {
			require.NoError(t, rest.Add(d))
		}
	}
	remaining, err := rest.Cycles()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSimpleCycle(t *testing.T) {
	t.Parallel()

	a := analyze(t,
		dep("A", "B", Field, "b"),
		dep("B", "A", Field, "a"),
	)

	require.Len(t, a.Cycles, 1)
	assert.Equal(t, Cycle{"A", "B"}, a.Cycles[0])
	require.Len(t, a.Cuts, 1)
	assert.Equal(t, dep("A", "B", Field, "b"), a.Cuts[0].BeanDependency)
	assert.InDelta(t, 1.5, a.TotalWeight, 1e-9)
	assertCovered(t, a)
}

func TestFieldCutBeforeConstructor(t *testing.T) {
	t.Parallel()

	a := analyze(t,
		dep("A", "B", Constructor, "b"),
		dep("B", "C", Constructor, "c"),
		dep("C", "A", Field, "a"),
	)

	require.Len(t, a.Cycles, 1)
	assert.Equal(t, []BeanDependency{dep("C", "A", Field, "a")}, cutEdges(a))
	assertCovered(t, a)
}

func TestComputeWeight(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		dep("X", "W", Constructor, "w"),
		dep("W", "Y", Field, "y"),
		dep("Y", "X", FactoryMethod, "x"),
		dep("W", "Z", FactoryMethod, "z"),
		dep("Z", "X", FactoryMethod, "x"),
	)
	sel := NewEdgeSelector(g.Dependencies())

	assert.InDelta(t, 3.5, sel.ComputeWeight(dep("X", "W", Constructor, "w")), 1e-9)
	assert.InDelta(t, 1.5, sel.ComputeWeight(dep("W", "Y", Field, "y")), 1e-9)
	assert.InDelta(t, 5.0, sel.ComputeWeight(dep("Y", "X", FactoryMethod, "x")), 1e-9)
	assert.InDelta(t, 4.5, sel.ComputeWeight(dep("W", "Z", FactoryMethod, "z")), 1e-9)

	// Same endpoints, different kinds.
	assert.Greater(t,
		sel.ComputeWeight(dep("X", "W", Constructor, "w")),
		sel.ComputeWeight(dep("X", "W", Field, "w")))
	assert.Equal(t, 1.0, BaseCost(Setter))
}

func TestGreedySuboptimal(t *testing.T) {
	t.Parallel()

	a := analyze(t,
		dep("X", "W", Constructor, "w"),
		dep("W", "Y", Field, "y"),
		dep("Y", "X", FactoryMethod, "x"),
		dep("W", "Z", FactoryMethod, "z"),
		dep("Z", "X", FactoryMethod, "x"),
	)

	require.Len(t, a.Cycles, 2)
	assert.Equal(t, Cycle{"W", "Y", "X"}, a.Cycles[0])
	assert.Equal(t, Cycle{"W", "Z", "X"}, a.Cycles[1])

	// Cutting X->W alone would cost 3.5; the greedy ratio prefers W->Y first.
	assert.Equal(t, []BeanDependency{
		dep("W", "Y", Field, "y"),
		dep("X", "W", Constructor, "w"),
	}, cutEdges(a))
	assert.InDelta(t, 5.0, a.TotalWeight, 1e-9)
	assertCovered(t, a)
}

func TestCyclesEnumeration(t *testing.T) {
	t.Parallel()

	t.Run("self loop", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, dep("A", "A", Field, "self"), dep("A", "B", Field, "b"))
		cycles, err := g.Cycles()
		require.NoError(t, err)
		assert.Equal(t, []Cycle{{"A"}}, cycles)
	})

	t.Run("shared edge", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t,
			dep("A", "B", Field, "b"),
			dep("B", "A", Field, "a"),
			dep("B", "C", Field, "c"),
			dep("C", "A", Field, "a"),
		)
		cycles, err := g.Cycles()
		require.NoError(t, err)
		assert.Equal(t, []Cycle{{"A", "B"}, {"A", "B", "C"}}, cycles)
		assert.Equal(t, "A -> B -> C -> A", cycles[1].String())
	})

	t.Run("separate components", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t,
			dep("P", "Q", Field, "q"),
			dep("Q", "P", Field, "p"),
			dep("A", "B", Field, "b"),
			dep("B", "A", Field, "a"),
			dep("B", "P", Field, "p"),
		)
		cycles, err := g.Cycles()
		require.NoError(t, err)
		assert.Equal(t, []Cycle{{"A", "B"}, {"P", "Q"}}, cycles)
	})

	t.Run("acyclic", func(t *testing.T) {
		t.Parallel()
		a := analyze(t, dep("A", "B", Constructor, "b"), dep("B", "C", Constructor, "c"))
		assert.Empty(t, a.Cycles)
		assert.Empty(t, a.Cuts)
		assert.Zero(t, a.TotalWeight)
		assert.Equal(t, []string{"A", "B", "C"}, a.Components)
	})
}

func TestParallelDependencies(t *testing.T) {
	t.Parallel()

	a := analyze(t,
		dep("A", "B", Field, "x"),
		dep("A", "B", Setter, "setX"),
		dep("B", "A", Constructor, "a"),
	)

	require.Len(t, a.Cycles, 1)
	assert.Equal(t, []BeanDependency{dep("B", "A", Constructor, "a")}, cutEdges(a))
	assertCovered(t, a)
}

func TestDuplicateDependencyIgnored(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, dep("A", "B", Field, "b"), dep("A", "B", Field, "b"))
	assert.Len(t, g.Edges(), 1)
	assert.Error(t, g.Add(dep("", "B", Field, "b")))
}

func TestSelectorCoverageOnDenseGraph(t *testing.T) {
	t.Parallel()

	names := []string{"A", "B", "C", "D"}
	var deps []BeanDependency
	for i, from := range names {
		for j, to := range names {
			if i == j {
				continue
			}
			kind := Field
			if (i+j)%2 == 0 {
				kind = Constructor
			}
			deps = append(deps, dep(from, to, kind, to))
		}
	}
	a := analyze(t, deps...)

	// K4 has 6 two-cycles, 8 three-cycles and 6 four-cycles.
	assert.Len(t, a.Cycles, 20)
	assert.NotEmpty(t, a.Cuts)
	assertCovered(t, a)
}

func TestSelectEdgesToCut_ClosedCycle(t *testing.T) {
	t.Parallel()

	sel := NewEdgeSelector(map[string][]BeanDependency{
		"A": {dep("A", "B", Field, "b")},
		"B": {dep("B", "A", Constructor, "a")},
	})

	closed := Cycle{"A", "B", "A"}
	assert.Equal(t, Cycle{"A", "B"}, closed.Open())
	assert.Equal(t, "A -> B -> A", closed.Open().String())
	assert.Equal(t, []BeanDependency{dep("A", "B", Field, "b"), dep("B", "A", Constructor, "a")}, sel.EdgesOf(closed))

	cut := sel.SelectEdgesToCut([]Cycle{closed})
	assert.Equal(t, []BeanDependency{dep("A", "B", Field, "b")}, cut)
	assert.Equal(t, cut, sel.SelectEdgesToCut([]Cycle{{"A", "B"}}))

	t.Run("closed self-loop", func(t *testing.T) {
		self := NewEdgeSelector(map[string][]BeanDependency{
			"A": {dep("A", "A", Setter, "setA")},
		})
		assert.Equal(t, []BeanDependency{dep("A", "A", Setter, "setA")}, self.SelectEdgesToCut([]Cycle{{"A", "A"}}))
	})
}
