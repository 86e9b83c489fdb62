package access

import "errors"

var (
	// ErrUnsupportedQuery is returned for query types the domain can't run.
	ErrUnsupportedQuery = errors.New("unsupported query")

	// ErrRowNotFound is returned when an UPDATE or DELETE of a committed
	// object matched no row.
	ErrRowNotFound = errors.New("row not found")

	// ErrMissingKey is returned when a fetched row or an inserted object has
	// no value for a primary key column.
	ErrMissingKey = errors.New("missing primary key value")
)
