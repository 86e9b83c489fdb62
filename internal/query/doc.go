// Package query defines the queries an object context can run.
//
// SelectQuery fetches objects (or data rows) of one entity matching a
// qualifier. ObjectIDQuery fetches a single object by id and
// RelationshipQuery fetches the targets of one relationship of one object.
// Both of the latter are answered from memory when possible and otherwise
// replaced by an equivalent SelectQuery.
//
// Cache keys are SHA-256 digests over NFC-normalized query parts with a
// domain prefix, so equal queries share a key across processes.
package query
