// Package translator turns qualifier expressions and select queries into
// parameterized SQL.
//
// A QueryAssembler owns the per-statement state: the join tree with its
// table aliases, the path aliases of the qualifier and the ordered
// parameter list. QualifierTranslator walks an expression tree and writes
// the WHERE clause through the assembler. Comparisons against persistent
// objects or ObjectIDs are expanded into one clause per key column by
// ObjectMatchTranslator. SelectTranslator puts the pieces together into a
// full SELECT statement.
//
// None of the types in this package are safe for concurrent use. Each
// statement gets its own assembler and translators.
package translator
