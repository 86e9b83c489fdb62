// Package store is the SQL data node behind an access.Domain.
//
// A Store owns one *sql.DB. SQLite databases opened with Open get the
// pragmas the data node relies on:
//
//   - WAL mode: concurrent reads during a commit
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce the relationships of the mapping
//
// Other drivers (github.com/lib/pq for PostgreSQL) are opened with
// OpenDriver and used as configured by their DSN.
//
// CreateSchema runs the DDL a dbadapter.DbAdapter generates for the mapped
// tables. Commits run inside InTx; Tx.Querier exposes a transaction to the
// primary key generators of package dbadapter.
package store
