package exp

// TraversalHandler receives callbacks from Traverse.
//
// Any callback returning an error stops the walk and the error is returned
// from Traverse unchanged.
type TraversalHandler interface {
	// StartNode is called before any operand of node is visited.
	StartNode(node, parent *Expression) error

	// FinishedChild is called after operand childIndex of node.
	FinishedChild(node *Expression, childIndex int, hasMoreChildren bool) error

	// EndNode is called after every operand of node was visited.
	EndNode(node, parent *Expression) error

	// ObjectNode is called for every operand that is not an Expression:
	// literals, path strings and LIST slices.
	ObjectNode(leaf any, parent *Expression) error
}

// Traverse walks the tree rooted at e. The root has a nil parent.
func (e *Expression) Traverse(h TraversalHandler) error {
	return e.traverse(nil, h)
}

func (e *Expression) traverse(parent *Expression, h TraversalHandler) error {
	if err := h.StartNode(e, parent); err != nil {
		return err
	}
	count := len(e.operands)
	for i, op := range e.operands {
		if child, ok := op.(*Expression); ok && child != nil {
			if err := child.traverse(e, h); err != nil {
				return err
			}
		} else {
			if ok {
				// typed nil sub-expression is a null literal
				op = nil
			}
			if err := h.ObjectNode(op, e); err != nil {
				return err
			}
		}
		if err := h.FinishedChild(e, i, i < count-1); err != nil {
			return err
		}
	}
	return h.EndNode(e, parent)
}
