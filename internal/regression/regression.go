// Package regression binds an expression tree to a scalar error over a set
// of (inputs, target) samples under mean-squared-error loss.
package regression

import (
	"fmt"
	"math"
	"math/rand"

	"cellgp/internal/op"
	"cellgp/internal/tree"
)

// Sample is one observation: input columns and the value to predict.
type Sample struct {
	Inputs []float64
	Target float64
}

// Problem is a symbolic-regression problem: the primitive sets and
// construction limits trees are built with, and the samples they are scored
// against. Fitness is minimized.
type Problem struct {
	Ops       []op.Op
	Terminals []op.Op
	MaxDepth  int
	// MaxSize rejects generated trees with Size() >= MaxSize. Zero disables
	// the predicate.
	MaxSize int
	Samples []Sample
}

// New validates the problem definition.
func New(ops, terminals []op.Op, maxDepth, maxSize int, samples []Sample) (*Problem, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("operator set is required")
	}
	if len(terminals) == 0 {
		return nil, fmt.Errorf("terminal set is required")
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("at least one sample is required")
	}
	width := len(samples[0].Inputs)
	for i, s := range samples {
		if len(s.Inputs) != width {
			return nil, fmt.Errorf("sample %d has %d inputs, want %d", i, len(s.Inputs), width)
		}
	}
	p := &Problem{
		Ops:       ops,
		Terminals: terminals,
		MaxDepth:  maxDepth,
		MaxSize:   maxSize,
		Samples:   samples,
	}
	return p, nil
}

// TreeParams exposes the construction limits as tree-generation parameters.
func (p *Problem) TreeParams() tree.Params {
	return tree.Params{
		Ops:       p.Ops,
		Terminals: p.Terminals,
		MaxDepth:  p.MaxDepth,
		Valid:     p.ValidTree,
	}
}

// ValidTree is the size predicate applied to every tree entering the
// population.
func (p *Problem) ValidTree(t *tree.Node) bool {
	if t == nil {
		return false
	}
	if p.MaxSize > 0 && t.Size() >= p.MaxSize {
		return false
	}
	return true
}

// NewGenotype constructs a fresh random tree respecting the depth cap and
// size predicate.
func (p *Problem) NewGenotype(rng *rand.Rand) (*tree.Node, error) {
	return tree.Generate(rng, p.TreeParams())
}

// Fitness scores a tree as the mean squared error over the samples. Any
// non-finite pointwise error makes the whole fitness +Inf so pathological
// trees lose to every finite competitor under minimization.
func (p *Problem) Fitness(t *tree.Node) float64 {
	var sum float64
	for _, s := range p.Samples {
		pred := t.Eval(s.Inputs)
		diff := pred - s.Target
		sq := diff * diff
		if math.IsNaN(sq) || math.IsInf(sq, 0) {
			return math.Inf(1)
		}
		sum += sq
	}
	return sum / float64(len(p.Samples))
}

// MSE computes the mean squared error of predictions against targets with
// the same non-finite isolation rule as Fitness.
func MSE(predictions, targets []float64) (float64, error) {
	if len(predictions) != len(targets) {
		return 0, fmt.Errorf("length mismatch: predictions=%d targets=%d", len(predictions), len(targets))
	}
	if len(predictions) == 0 {
		return 0, fmt.Errorf("no samples")
	}
	var sum float64
	for i := range predictions {
		diff := predictions[i] - targets[i]
		sq := diff * diff
		if math.IsNaN(sq) || math.IsInf(sq, 0) {
			return math.Inf(1), nil
		}
		sum += sq
	}
	return sum / float64(len(predictions)), nil
}
