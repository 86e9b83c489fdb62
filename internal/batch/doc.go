// Package batch builds INSERT, UPDATE and DELETE statements for commits.
//
// A batch query holds the rows of one table that share a statement shape.
// Its builder renders that shape once and binds each row's values in
// placeholder order. Qualifier columns whose value is NULL render as
// "IS NULL" and bind nothing, so every row of a batch must have the same
// NULL columns.
package batch
