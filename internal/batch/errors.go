package batch

import "errors"

var (
	// ErrNullPatternMismatch is returned when a row's NULL qualifier
	// columns differ from those of its batch.
	ErrNullPatternMismatch = errors.New("row does not match the batch null pattern")

	// ErrRowOutOfRange is returned when binding a row the batch does not
	// have.
	ErrRowOutOfRange = errors.New("batch row out of range")
)
