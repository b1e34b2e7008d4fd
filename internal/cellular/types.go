// Package cellular implements the cellular evolution engine: a population
// indexed by the nodes of a directed graph, where each cell evolves against
// its graph neighborhood only, plus the lazy stream driver on top of it.
package cellular

import (
	"time"

	"cellgp/internal/evo"
)

// EvolutionStart is the input of one generation step.
type EvolutionStart struct {
	Population []evo.Phenotype
	Generation int
}

// EvolutionResult is the output of one generation step. KillCount counts
// phenotypes replaced for exceeding the age cap, InvalidCount constraint
// repairs, AlterCount offspring that won their cell's replacement.
type EvolutionResult struct {
	Population   []evo.Phenotype
	Generation   int
	Duration     time.Duration
	KillCount    int
	InvalidCount int
	AlterCount   int
	Optimize     evo.Optimize
}

// Next re-enters the stream with this result's population.
func (r EvolutionResult) Next() EvolutionStart {
	return EvolutionStart{Population: r.Population, Generation: r.Generation}
}

// BestPhenotype returns the optimal phenotype of the result population.
func (r EvolutionResult) BestPhenotype() (evo.Phenotype, bool) {
	return evo.Best(r.Population, r.Optimize)
}

// BestFitness returns the optimal fitness of the result population. The
// boolean is false when nothing has been evaluated yet.
func (r EvolutionResult) BestFitness() (float64, bool) {
	best, ok := r.BestPhenotype()
	if !ok {
		return 0, false
	}
	return best.Fitness(), true
}
