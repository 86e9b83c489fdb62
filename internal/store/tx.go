package store

import (
	"context"
	"database/sql"

	"github.com/roach88/objgraph/internal/dbadapter"
)

// Tx is a transaction opened by Store.InTx.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Querier returns t as a dbadapter.Querier. rebind rewrites the "?"
// placeholders of generator statements for the driver; nil keeps them.
func (t *Tx) Querier(rebind func(string) string) dbadapter.Querier {
	if rebind == nil {
		rebind = func(s string) string { return s }
	}
	return &txQuerier{tx: t.tx, rebind: rebind}
}

type txQuerier struct {
	tx     *sql.Tx
	rebind func(string) string
}

func (q *txQuerier) QueryRowContext(ctx context.Context, query string, args ...any) dbadapter.RowScanner {
	return q.tx.QueryRowContext(ctx, q.rebind(query), args...)
}

// ExecContext returns the number of affected rows.
func (q *txQuerier) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.tx.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
