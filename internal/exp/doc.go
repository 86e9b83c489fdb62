// Package exp provides the qualifier expression tree for objgraph.
//
// An Expression is a tagged node: a Type drawn from a closed operator set
// plus an ordered operand slice. Operands are sub-expressions, literal
// values (any Go value, including nil), path strings (for OBJ_PATH and
// DB_PATH nodes) or a slice of values (for LIST nodes).
//
// ARCHITECTURE:
//
//	[factory / YAML Spec] → [Expression tree] → [translator] → SQL + params
//
// The tree is built once and translated once per query execution. Backends
// never extend the operator set: consumers switch exhaustively over Type,
// and an unknown Type is always an error.
//
// TRAVERSAL:
//
// Traverse walks a tree with a four-callback protocol:
//
//	StartNode(node, parent)                 before any operand
//	ObjectNode(leaf, parent)                for each non-expression operand
//	FinishedChild(node, i, hasMoreChildren) after operand i
//	EndNode(node, parent)                   after all operands
//
// PATH SPLITTING:
//
// MatchAllExp with a path containing SplitSeparator gives every value its own
// alias for the split relationship, so that each value is matched against a
// distinct joined row. Alias names come from a process-wide counter that is
// never reset; only uniqueness is guaranteed, not determinism.
package exp
