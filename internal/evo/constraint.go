package evo

import (
	"fmt"
	"math/rand"

	"cellgp/internal/tree"
)

// Constraint validates phenotypes and repairs the ones that fail. Repair
// runs inside the generation; the result re-enters the population in place.
type Constraint interface {
	Name() string
	IsValid(p Phenotype) bool
	Repair(rng *rand.Rand, p Phenotype, generation int) (Phenotype, error)
}

// RetryConstraint accepts phenotypes whose tree satisfies the validity
// predicate and repairs failures by regenerating a fresh random phenotype at
// the current generation.
type RetryConstraint struct {
	Codec Codec
	Valid func(*tree.Node) bool
}

func (RetryConstraint) Name() string { return "retry" }

func (c RetryConstraint) IsValid(p Phenotype) bool {
	if p.Tree == nil {
		return false
	}
	if c.Valid == nil {
		return true
	}
	return c.Valid(p.Tree)
}

func (c RetryConstraint) Repair(rng *rand.Rand, _ Phenotype, generation int) (Phenotype, error) {
	if c.Codec == nil {
		return Phenotype{}, fmt.Errorf("retry constraint requires a codec")
	}
	t, err := c.Codec.NewGenotype(rng)
	if err != nil {
		return Phenotype{}, fmt.Errorf("repair: %w", err)
	}
	return NewPhenotype(t, generation), nil
}
