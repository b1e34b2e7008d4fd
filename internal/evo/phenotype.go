package evo

import (
	"math/rand"

	"cellgp/internal/tree"
)

// Phenotype pairs a genotype with the generation it was born in and, once
// the evaluator has seen it, a fitness. Fitness is filled in exactly once
// and never changed afterwards.
type Phenotype struct {
	Tree       *tree.Node
	Generation int

	fitness   float64
	evaluated bool
}

// NewPhenotype creates an unevaluated phenotype born at the given generation.
func NewPhenotype(t *tree.Node, generation int) Phenotype {
	return Phenotype{Tree: t, Generation: generation}
}

// IsEvaluated reports whether a fitness is present.
func (p Phenotype) IsEvaluated() bool { return p.evaluated }

// Fitness returns the stored fitness. Valid only when IsEvaluated.
func (p Phenotype) Fitness() float64 { return p.fitness }

// WithFitness returns a copy carrying the given fitness.
func (p Phenotype) WithFitness(fitness float64) Phenotype {
	p.fitness = fitness
	p.evaluated = true
	return p
}

// Age is the number of generations survived at the given generation.
func (p Phenotype) Age(generation int) int { return generation - p.Generation }

// Codec constructs fresh random genotypes; the problem layer provides it.
type Codec interface {
	NewGenotype(rng *rand.Rand) (*tree.Node, error)
}

// Best returns the phenotype with the preferred fitness under the given
// direction. Ties and unevaluated candidates keep the earlier occurrence.
func Best(population []Phenotype, optimize Optimize) (Phenotype, bool) {
	var best Phenotype
	found := false
	for _, p := range population {
		if !p.IsEvaluated() {
			continue
		}
		if !found || optimize.Prefers(p.Fitness(), best.Fitness()) {
			best = p
			found = true
		}
	}
	return best, found
}
