package parser

// FindAll returns every node below and including root that matches pred,
// in document order.
func FindAll(root *Node, pred func(*Node) bool) []*Node {
	out := make([]*Node, 0)
	walk(root, func(n *Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FindFirst returns the first matching node in document order, or nil.
func FindFirst(root *Node, pred func(*Node) bool) *Node {
	var found *Node
	walk(root, func(n *Node) bool {
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindIn searches a list of nodes the same way FindFirst searches one.
func FindIn(nodes []*Node, pred func(*Node) bool) *Node {
	for _, n := range nodes {
		if found := FindFirst(n, pred); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *Node, visit func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for _, child := range n.Inner {
		if !walk(child, visit) {
			return false
		}
	}
	return true
}
