package tree

import (
	"fmt"
	"math/rand"

	"cellgp/internal/op"
)

// Generation retry cap before the size predicate is declared unsatisfiable.
const maxGenerateAttempts = 100

// Params configures random tree construction.
type Params struct {
	Ops       []op.Op
	Terminals []op.Op
	MaxDepth  int
	// TerminalProb is the chance of cutting a branch with a terminal before
	// the depth cap is reached. Zero means the default of 0.5.
	TerminalProb float64
	// Valid accepts or rejects a finished tree, e.g. a size cap.
	Valid func(*Node) bool
}

func (p Params) validate() error {
	if len(p.Ops) == 0 {
		return fmt.Errorf("operator set is empty")
	}
	if len(p.Terminals) == 0 {
		return fmt.Errorf("terminal set is empty")
	}
	for _, o := range p.Ops {
		if o.Arity() < 1 {
			return fmt.Errorf("operator %s has terminal arity", o.Name())
		}
	}
	for _, t := range p.Terminals {
		if t.Arity() != 0 {
			return fmt.Errorf("terminal %s has arity %d", t.Name(), t.Arity())
		}
	}
	if p.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0")
	}
	if p.TerminalProb < 0 || p.TerminalProb > 1 {
		return fmt.Errorf("terminal probability must be in [0, 1]")
	}
	return nil
}

// Generate grows a random tree with depth <= MaxDepth satisfying the
// validity predicate. Ephemeral terminals are instantiated in place, freezing
// their sampled value into the tree. Trees failing the predicate are
// discarded and regrown up to a fixed attempt cap; exhausting it means the
// configuration itself cannot be satisfied.
func Generate(rng *rand.Rand, params Params) (*Node, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	terminalProb := params.TerminalProb
	if terminalProb == 0 {
		terminalProb = 0.5
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		t := grow(rng, params, terminalProb, 0)
		if params.Valid == nil || params.Valid(t) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no valid tree after %d attempts; size predicate may be unsatisfiable", maxGenerateAttempts)
}

// GenerateSubtree grows a replacement subtree with its own depth budget,
// used by subtree mutation. Validity of the host tree is the caller's call.
func GenerateSubtree(rng *rand.Rand, params Params) (*Node, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	terminalProb := params.TerminalProb
	if terminalProb == 0 {
		terminalProb = 0.5
	}
	return grow(rng, params, terminalProb, 0), nil
}

func grow(rng *rand.Rand, params Params, terminalProb float64, depth int) *Node {
	if depth >= params.MaxDepth || rng.Float64() < terminalProb {
		return &Node{Op: pickTerminal(rng, params.Terminals)}
	}
	chosen := params.Ops[rng.Intn(len(params.Ops))]
	children := make([]*Node, chosen.Arity())
	for i := range children {
		children[i] = grow(rng, params, terminalProb, depth+1)
	}
	return &Node{Op: chosen, Children: children}
}

func pickTerminal(rng *rand.Rand, terminals []op.Op) op.Op {
	chosen := terminals[rng.Intn(len(terminals))]
	if inst, ok := chosen.(op.Instantiable); ok {
		return inst.Instantiate(rng)
	}
	return chosen
}
