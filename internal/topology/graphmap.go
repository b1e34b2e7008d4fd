// Package topology defines the directed interaction graphs the cellular
// engine evolves over, together with the generators that build them.
package topology

import "fmt"

// GraphMap is an immutable labeled adjacency structure. Node ids are the
// indices [0, Size); node i in the graph IS index i in the population.
// Neighbor lists may be empty, may contain the node itself and may contain
// repeats; the engine treats all three as legitimate.
type GraphMap struct {
	name      string
	adjacency [][]int
}

// New builds a GraphMap after checking every neighbor id is a valid node id.
func New(name string, adjacency [][]int) (*GraphMap, error) {
	if name == "" {
		return nil, fmt.Errorf("graph name is required")
	}
	if len(adjacency) == 0 {
		return nil, fmt.Errorf("graph must have at least one node")
	}
	for i, neighbors := range adjacency {
		for _, j := range neighbors {
			if j < 0 || j >= len(adjacency) {
				return nil, fmt.Errorf("node %d has neighbor %d outside [0, %d)", i, j, len(adjacency))
			}
		}
	}
	return &GraphMap{name: name, adjacency: adjacency}, nil
}

// Size returns the node count, which equals the population size using this
// topology.
func (g *GraphMap) Size() int { return len(g.adjacency) }

// Name returns the human-readable label of this graph.
func (g *GraphMap) Name() string { return g.name }

// Neighbors returns the ordered out-neighbor list of a node. The returned
// slice is owned by the graph and must not be modified.
func (g *GraphMap) Neighbors(node int) []int {
	return g.adjacency[node]
}

// EdgeCount returns the total number of directed edges, counting repeats.
func (g *GraphMap) EdgeCount() int {
	count := 0
	for _, neighbors := range g.adjacency {
		count += len(neighbors)
	}
	return count
}

func (g *GraphMap) String() string { return g.name }
