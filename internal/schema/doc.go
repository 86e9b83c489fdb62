// Package schema holds the mapping metadata consumed by the translator, the
// batch builders and the object layer.
//
// Two parallel layers describe a model:
//
//   - Db layer: DbEntity (table), DbAttribute (column), DbRelationship (FK
//     edge with an ordered list of DbJoin column pairs).
//   - Object layer: ObjEntity, ObjAttribute (mapped to a db attribute path)
//     and ObjRelationship (mapped to a chain of DbRelationships).
//
// Entities live in a DataMap. An EntityResolver groups data maps into one
// namespace and is the lookup surface for everything above this package.
//
// PATHS:
//
// Dot-separated paths are resolved against an entity into PathComponents.
// A component name ending in OuterJoinIndicator ("+") requests a left outer
// join. Names found in the alias map expand to their aliased relationship
// path; the translator joins such components under the alias name.
//
// INHERITANCE:
//
// An ObjEntity may declare a super entity and a qualifier restricting the
// rows it owns. QualifierForEntityAndSubclasses ORs the qualifiers of an
// entity and all of its descendants; a missing qualifier anywhere in the
// tree means no restriction at all.
//
// Models are usually loaded from CUE with LoadCUE.
package schema
