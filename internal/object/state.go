package object

import "fmt"

// PersistenceState is the lifecycle state of a persistent object.
type PersistenceState int

const (
	Transient PersistenceState = iota
	New
	Committed
	Modified
	Hollow
	Deleted
)

var stateNames = [...]string{"TRANSIENT", "NEW", "COMMITTED", "MODIFIED", "HOLLOW", "DELETED"}

func (s PersistenceState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("PersistenceState(%d)", int(s))
}

// IsTransient reports whether an object in state s has no database row.
func (s PersistenceState) IsTransient() bool {
	return s == Transient || s == New
}

// IsUncommitted reports whether an object in state s has local changes the
// database does not have yet.
func (s PersistenceState) IsUncommitted() bool {
	return s == Modified || s == Deleted
}
