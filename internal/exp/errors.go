package exp

import "errors"

var (
	// ErrInvalidExpressionType is returned for negative, out-of-range or
	// reserved operator tags.
	ErrInvalidExpressionType = errors.New("invalid expression type")

	// ErrInvalidArity is returned when a node has an operand count its
	// operator does not allow.
	ErrInvalidArity = errors.New("invalid operand count")

	// ErrInvalidSpec is returned when a YAML expression spec cannot be built.
	ErrInvalidSpec = errors.New("invalid expression spec")
)
