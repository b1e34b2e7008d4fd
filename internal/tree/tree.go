// Package tree implements the expression-tree genotype: random construction
// under a depth cap and size predicate, structural queries, subtree
// replacement and post-order evaluation against a sample.
package tree

import (
	"fmt"

	"cellgp/internal/op"
)

// Node is a rooted expression tree. A node carrying an operator of arity k
// has exactly k children in fixed order. Trees behave as values: operations
// producing new trees never let callers observe shared interior nodes.
type Node struct {
	Op       op.Op
	Children []*Node
}

// NewNode builds a node and checks the operator arity against the child count.
func NewNode(o op.Op, children ...*Node) (*Node, error) {
	if o == nil {
		return nil, fmt.Errorf("operator is required")
	}
	if len(children) != o.Arity() {
		return nil, fmt.Errorf("operator %s requires %d children, got %d", o.Name(), o.Arity(), len(children))
	}
	return &Node{Op: o, Children: children}, nil
}

// MustNode is NewNode for statically known shapes, mainly in tests.
func MustNode(o op.Op, children ...*Node) *Node {
	n, err := NewNode(o, children...)
	if err != nil {
		panic(err)
	}
	return n
}

// Size returns the total node count.
func (n *Node) Size() int {
	size := 1
	for _, child := range n.Children {
		size += child.Size()
	}
	return size
}

// Depth returns the maximum node depth, with the root at depth 0.
func (n *Node) Depth() int {
	depth := 0
	for _, child := range n.Children {
		if d := child.Depth() + 1; d > depth {
			depth = d
		}
	}
	return depth
}

// Copy returns a deep copy sharing no nodes with the receiver.
func (n *Node) Copy() *Node {
	children := make([]*Node, len(n.Children))
	for i, child := range n.Children {
		children[i] = child.Copy()
	}
	return &Node{Op: n.Op, Children: children}
}

// Nodes returns every node in preorder. Index 0 is the root; positions are
// stable for a given tree shape, which is what random node picks rely on.
func (n *Node) Nodes() []*Node {
	out := make([]*Node, 0, n.Size())
	var walk func(*Node)
	walk = func(cur *Node) {
		out = append(out, cur)
		for _, child := range cur.Children {
			walk(child)
		}
	}
	walk(n)
	return out
}

// At returns the subtree rooted at the given preorder position.
func (n *Node) At(index int) (*Node, error) {
	nodes := n.Nodes()
	if index < 0 || index >= len(nodes) {
		return nil, fmt.Errorf("node index out of range: %d (size %d)", index, len(nodes))
	}
	return nodes[index], nil
}

// ReplaceAt returns a copy of the tree with the subtree at the given preorder
// position replaced by a copy of repl. The receiver is left untouched.
func (n *Node) ReplaceAt(index int, repl *Node) (*Node, error) {
	if index < 0 || index >= n.Size() {
		return nil, fmt.Errorf("node index out of range: %d (size %d)", index, n.Size())
	}
	var rebuild func(cur *Node, pos int) (*Node, int)
	rebuild = func(cur *Node, pos int) (*Node, int) {
		if pos == index {
			return repl.Copy(), pos + cur.Size()
		}
		if index < pos || index >= pos+cur.Size() {
			return cur.Copy(), pos + cur.Size()
		}
		children := make([]*Node, len(cur.Children))
		childPos := pos + 1
		for i, child := range cur.Children {
			children[i], childPos = rebuild(child, childPos)
		}
		return &Node{Op: cur.Op, Children: children}, childPos
	}
	out, _ := rebuild(n, 0)
	return out, nil
}

// Eval evaluates the tree bottom-up against one sample's inputs. Division by
// zero and domain errors flow through as IEEE-754 Inf/NaN; the loss layer is
// responsible for isolating them.
func (n *Node) Eval(inputs []float64) float64 {
	if len(n.Children) == 0 {
		return n.Op.Eval(nil, inputs)
	}
	args := make([]float64, len(n.Children))
	for i, child := range n.Children {
		args[i] = child.Eval(inputs)
	}
	return n.Op.Eval(args, inputs)
}

// Equal reports structural equality: same operators, same shape.
func (n *Node) Equal(other *Node) bool {
	if other == nil {
		return false
	}
	if n.Op.Name() != other.Op.Name() || len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}
