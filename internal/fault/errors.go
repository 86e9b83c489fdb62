package fault

import "errors"

var (
	// ErrTooManyObjects is returned when a to-one relationship resolves to
	// more than one object.
	ErrTooManyObjects = errors.New("to-one relationship resolved to more than one object")

	// ErrIndexOutOfRange is returned for list positions outside [0, Len).
	ErrIndexOutOfRange = errors.New("list index out of range")
)
