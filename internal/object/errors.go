package object

import "errors"

var (
	// ErrTemporaryID is returned when a temporary id is used where a
	// database key is required.
	ErrTemporaryID = errors.New("can't use NEW object as a query parameter")

	// ErrCompoundID is returned when a single-column key is required but the
	// id has several columns.
	ErrCompoundID = errors.New("compound id where a single key is required")

	// ErrUnknownProperty is returned for property names an entity does not
	// declare.
	ErrUnknownProperty = errors.New("unknown property")
)
