package evo

import (
	"fmt"
	"math/rand"

	"cellgp/internal/op"
	"cellgp/internal/tree"
)

// Alterer transforms a sequence of phenotypes into offspring. Altered
// offspring are born at the given generation with absent fitness; untouched
// phenotypes pass through unchanged. The returned count is the number of
// alterations performed.
type Alterer interface {
	Name() string
	Alter(rng *rand.Rand, population []Phenotype, generation int) ([]Phenotype, int, error)
}

// SingleNodeCrossover swaps one randomly chosen subtree between two parents.
// Each pair is swapped with probability Probability; otherwise the parents
// pass through unchanged.
type SingleNodeCrossover struct {
	Probability float64
}

func (SingleNodeCrossover) Name() string { return "single_node_crossover" }

func (c SingleNodeCrossover) Alter(rng *rand.Rand, population []Phenotype, generation int) ([]Phenotype, int, error) {
	if rng == nil {
		return nil, 0, fmt.Errorf("random source is required")
	}
	if c.Probability < 0 || c.Probability > 1 {
		return nil, 0, fmt.Errorf("crossover probability must be in [0, 1]")
	}
	out := append([]Phenotype(nil), population...)
	alterations := 0
	for i := 0; i+1 < len(out); i += 2 {
		if rng.Float64() >= c.Probability {
			continue
		}
		a, b := out[i].Tree, out[i+1].Tree
		posA := rng.Intn(a.Size())
		posB := rng.Intn(b.Size())
		subA, err := a.At(posA)
		if err != nil {
			return nil, 0, err
		}
		subB, err := b.At(posB)
		if err != nil {
			return nil, 0, err
		}
		childA, err := a.ReplaceAt(posA, subB)
		if err != nil {
			return nil, 0, err
		}
		childB, err := b.ReplaceAt(posB, subA)
		if err != nil {
			return nil, 0, err
		}
		out[i] = NewPhenotype(childA, generation)
		out[i+1] = NewPhenotype(childB, generation)
		alterations += 2
	}
	return out, alterations, nil
}

// SubtreeMutator replaces a randomly chosen subtree with a freshly grown
// one, per phenotype with probability Probability. The replacement is grown
// no deeper than the subtree it replaces (and at most MaxDepth), and the
// host tree must still satisfy the validity predicate; failing hosts are
// left unchanged.
type SubtreeMutator struct {
	Probability float64
	Ops         []op.Op
	Terminals   []op.Op
	MaxDepth    int
	Valid       func(*tree.Node) bool
}

func (SubtreeMutator) Name() string { return "subtree_mutator" }

func (m SubtreeMutator) Alter(rng *rand.Rand, population []Phenotype, generation int) ([]Phenotype, int, error) {
	if rng == nil {
		return nil, 0, fmt.Errorf("random source is required")
	}
	if m.Probability < 0 || m.Probability > 1 {
		return nil, 0, fmt.Errorf("mutation probability must be in [0, 1]")
	}
	out := append([]Phenotype(nil), population...)
	alterations := 0
	for i := range out {
		if rng.Float64() >= m.Probability {
			continue
		}
		mutated, err := m.mutate(rng, out[i].Tree)
		if err != nil {
			return nil, 0, err
		}
		if mutated == nil {
			continue
		}
		out[i] = NewPhenotype(mutated, generation)
		alterations++
	}
	return out, alterations, nil
}

func (m SubtreeMutator) mutate(rng *rand.Rand, t *tree.Node) (*tree.Node, error) {
	pos := rng.Intn(t.Size())
	old, err := t.At(pos)
	if err != nil {
		return nil, err
	}
	// The replacement inherits the height the old subtree had, so mutation
	// alone never deepens a tree past its generation-time cap.
	budget := old.Depth()
	if m.MaxDepth > 0 && budget > m.MaxDepth {
		budget = m.MaxDepth
	}
	repl, err := tree.GenerateSubtree(rng, tree.Params{
		Ops:       m.Ops,
		Terminals: m.Terminals,
		MaxDepth:  budget,
	})
	if err != nil {
		return nil, err
	}
	mutated, err := t.ReplaceAt(pos, repl)
	if err != nil {
		return nil, err
	}
	if m.Valid != nil && !m.Valid(mutated) {
		return nil, nil
	}
	return mutated, nil
}

// Chain applies alterers in declared order, threading the population through
// each and accumulating alteration counts.
type Chain struct {
	Alterers []Alterer
}

func (c Chain) Name() string { return "chain" }

func (c Chain) Alter(rng *rand.Rand, population []Phenotype, generation int) ([]Phenotype, int, error) {
	out := population
	total := 0
	for _, a := range c.Alterers {
		altered, count, err := a.Alter(rng, out, generation)
		if err != nil {
			return nil, 0, fmt.Errorf("alterer %s: %w", a.Name(), err)
		}
		out = altered
		total += count
	}
	return out, total, nil
}
