// Package dbadapter isolates what differs between databases: identifier
// quoting, parameter binding, LIKE escape syntax, column type names and
// primary key generation.
//
// The translator and batch builders only ever render "?" placeholders and
// collect ParameterBindings. Execution binds every parameter through
// DbAdapter.BindParameter into a Binder and lets the adapter rewrite the
// placeholders (Rebind) when its driver needs another syntax.
//
// Two adapters are provided. SQLite supports generated keys, so inserted
// rows get their key from the driver. PostgreSQL (lib/pq) does not report
// generated keys through database/sql; keys come from per-table sequences
// allocated by SequencePKGenerator before insert.
package dbadapter
