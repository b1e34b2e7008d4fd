package cellular

import (
	"fmt"

	"cellgp/internal/topology"
)

// NewPanmictic builds an engine whose interaction pool is the whole
// population: the cellular step over a complete graph, used as the baseline
// the cellular topologies are compared against.
func NewPanmictic(cfg Config, populationSize int) (*Engine, error) {
	if populationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	complete, err := topology.Complete(populationSize)
	if err != nil {
		return nil, err
	}
	cfg.Topology = complete
	return New(cfg)
}
