// Package access connects object contexts to a SQL database.
//
// A Domain is the object.DataChannel at the bottom of a context stack. It
// answers queries by translating them to SELECT statements and turning the
// fetched rows into objects of the originating context, and it commits
// graph changes as batches of INSERT, UPDATE and DELETE statements run in
// one transaction.
//
// COMMIT ORDER:
//
// Inserts run table by table in dependency order, so that every row is
// inserted after the rows it references. Updates follow. Deletes run last,
// in reverse dependency order. Temporary ids of inserted objects are
// replaced by permanent ids built from the generated or assigned primary
// keys; the replacements are returned to the context as NodeIDChangeDiffs.
package access
