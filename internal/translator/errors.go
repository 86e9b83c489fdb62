package translator

import "errors"

var (
	// ErrUnsupportedListOperand is returned when a LIST node holds something
	// other than a slice or an array.
	ErrUnsupportedListOperand = errors.New("unsupported type for the list expressions")

	// ErrObjectMatchWithoutRelationship is returned when an object is
	// compared with a path that does not end in a relationship.
	ErrObjectMatchWithoutRelationship = errors.New("object match without a relationship")

	// ErrIllegalEscapeChar is returned for a LIKE escape character of '?'.
	ErrIllegalEscapeChar = errors.New("the escape character of '?' is illegal for LIKE clauses")

	// ErrTransientObject is returned when an object without an ObjectID is
	// used as a query parameter.
	ErrTransientObject = errors.New("can't use TRANSIENT object as a query parameter")

	// ErrUnsupportedPath is returned for paths the translator can't render,
	// such as a relationship termination over a compound join.
	ErrUnsupportedPath = errors.New("unsupported path")

	// ErrInvalidLiteral is returned for a non-object literal inside an
	// object match.
	ErrInvalidLiteral = errors.New("attempt to use literal other than an object during object match")
)
