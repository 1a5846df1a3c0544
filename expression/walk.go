package expression

// Walk visits node and its children depth first, parents before children.
// Returning false from fn skips the children of that node.
func Walk(node Node, fn func(Node) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Unary:
		Walk(n.Operand, fn)
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Member:
		Walk(n.Target, fn)
	case *Index:
		Walk(n.Target, fn)
		walkAll(n.Arguments, fn)
	case *Call:
		Walk(n.Target, fn)
		walkAll(n.Arguments, fn)
	case *Invoke:
		Walk(n.Func, fn)
		walkAll(n.Arguments, fn)
	case *Conditional:
		Walk(n.Test, fn)
		Walk(n.IfTrue, fn)
		Walk(n.IfFalse, fn)
	case *Convert:
		Walk(n.Operand, fn)
	case *TypeAs:
		Walk(n.Operand, fn)
	case *TypeIs:
		Walk(n.Operand, fn)
	case *New:
		walkAll(n.Arguments, fn)
	case *NewArray:
		walkAll(n.Elements, fn)
	}
	// Constant, Parameter and Default have no children
}

func walkAll(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		Walk(n, fn)
	}
}

// Parameters returns the distinct parameters referenced by node in first-use
// order.
func Parameters(node Node) []*Parameter {
	var res []*Parameter
	seen := map[*Parameter]bool{}
	Walk(node, func(n Node) bool {
		if p, ok := n.(*Parameter); ok && !seen[p] {
			seen[p] = true
			res = append(res, p)
		}
		return true
	})
	return res
}
