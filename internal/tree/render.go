package tree

import (
	"fmt"
	"strings"
)

var infix = map[string]string{
	"add": "+",
	"sub": "-",
	"mul": "*",
	"div": "/",
}

// String renders the tree as an infix expression. Binary arithmetic uses the
// usual symbols, everything else function-call notation.
func (n *Node) String() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	name := n.Op.Name()
	if sym, ok := infix[name]; ok && len(n.Children) == 2 {
		b.WriteString("(")
		n.Children[0].render(b)
		fmt.Fprintf(b, " %s ", sym)
		n.Children[1].render(b)
		b.WriteString(")")
		return
	}
	if len(n.Children) == 0 {
		b.WriteString(name)
		return
	}
	b.WriteString(name)
	b.WriteString("(")
	for i, child := range n.Children {
		if i > 0 {
			b.WriteString(", ")
		}
		child.render(b)
	}
	b.WriteString(")")
}
