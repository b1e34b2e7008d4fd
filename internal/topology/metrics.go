package topology

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Metrics summarizes the structure of a graph, mainly for reports and for
// sanity-checking generator output.
type Metrics struct {
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	MinOut     int     `json:"min_out"`
	MaxOut     int     `json:"max_out"`
	MeanOut    float64 `json:"mean_out"`
	SelfLoops  int     `json:"self_loops"`
	Duplicates int     `json:"duplicates"`
	Acyclic    bool    `json:"acyclic"`
}

// Measure computes degree statistics directly and cycle structure through a
// gonum directed graph. Self-loops and duplicate edges are counted apart
// because the simple graph representation cannot carry them.
func Measure(g *GraphMap) Metrics {
	n := g.Size()
	m := Metrics{Nodes: n, MinOut: -1}

	dg := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		dg.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		neighbors := g.Neighbors(i)
		out := len(neighbors)
		m.Edges += out
		if m.MinOut < 0 || out < m.MinOut {
			m.MinOut = out
		}
		if out > m.MaxOut {
			m.MaxOut = out
		}
		seen := make(map[int]bool, out)
		for _, j := range neighbors {
			if j == i {
				m.SelfLoops++
				continue
			}
			if seen[j] {
				m.Duplicates++
				continue
			}
			seen[j] = true
			dg.SetEdge(dg.NewEdge(simple.Node(i), simple.Node(j)))
		}
	}
	if m.MinOut < 0 {
		m.MinOut = 0
	}
	m.MeanOut = float64(m.Edges) / float64(n)

	if m.SelfLoops > 0 {
		m.Acyclic = false
		return m
	}
	_, err := topo.Sort(dg)
	m.Acyclic = err == nil
	return m
}
