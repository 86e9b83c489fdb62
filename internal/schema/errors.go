package schema

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

var (
	// ErrInvalidPath is returned when a path cannot be resolved against an
	// entity.
	ErrInvalidPath = errors.New("invalid path")

	// ErrUnknownEntity is returned for lookups of entities not in the
	// namespace.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("duplicate name")

	// ErrInvalidMapping is returned by Validate for inconsistent metadata.
	ErrInvalidMapping = errors.New("invalid mapping")
)

// MappingError reports a problem in a mapping source with its position.
type MappingError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *MappingError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *MappingError) Unwrap() error {
	return ErrInvalidMapping
}
