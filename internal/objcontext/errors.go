package objcontext

import "errors"

var (
	// ErrObjectNotFound is returned when a HOLLOW object has no row.
	ErrObjectNotFound = errors.New("object not found")

	// ErrTransientObject is returned for objects without an id.
	ErrTransientObject = errors.New("object has no id")

	// ErrForeignObject is returned for objects registered with another
	// context.
	ErrForeignObject = errors.New("object belongs to another context")
)
