// Package object defines the persistent object model shared by the query,
// fault and context layers.
//
// # Identity
//
// Every persistent object is identified by an ObjectID: the entity name plus
// an ordered primary key snapshot. Objects that were never inserted carry a
// temporary id backed by a UUIDv7. Temporary ids never match database rows
// and cannot be used as query parameters (ErrTemporaryID). After an insert
// the commit layer attaches replacement values and swaps in the permanent id.
//
// ObjectID.Key() is the canonical string form. Identity maps, visited sets
// and caches key on it, never on the pointer.
//
// # Lifecycle
//
//	TRANSIENT  not registered with any context
//	NEW        registered, not yet inserted
//	COMMITTED  in sync with the database
//	MODIFIED   committed object with uncommitted changes
//	HOLLOW     registered but not loaded; PrepareForAccess fetches it
//	DELETED    scheduled for deletion on the next commit
//
// # Contracts
//
// ObjectContext, DataChannel and Query are interfaces so the fault package,
// the context implementation and the data domain can depend on each other
// only through this package. ClassDescriptor exposes entity properties
// (attributes, to-one and to-many relationships) over generic DataObjects.
package object
