// Package fault implements lazily resolved relationship values.
//
// A to-many relationship of a registered object holds a
// PersistentObjectList. The list starts as a fault and is resolved on the
// first operation that needs its members by running a RelationshipQuery
// through the owner's context. Adds and removes made while the list is a
// fault are kept aside and merged into the fetched members if the owner
// still has uncommitted changes at resolution time.
//
// A to-one relationship holds ToOneFault until it is read.
//
// RESOLUTION:
//
// At most one fetch runs per list at a time. Goroutines that need the
// members while a fetch is running wait for it and reuse its result. A
// failed fetch leaves the list a fault so the next access retries.
package fault
