package batch

import (
	"fmt"
	"strings"

	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/schema"
)

// Builder renders the statement of a batch and binds its rows.
type Builder interface {
	// CreateSQLString returns the statement every row of the batch runs.
	CreateSQLString() (string, error)

	// BindParameters binds the values of one row in placeholder order,
	// replacing whatever b held.
	BindParameters(b *dbadapter.Binder, row int) error
}

// NewBuilder returns the builder for q.
func NewBuilder(q Query, adapter dbadapter.DbAdapter) (Builder, error) {
	switch q := q.(type) {
	case *InsertBatchQuery:
		return &InsertBuilder{query: q, adapter: adapter}, nil
	case *UpdateBatchQuery:
		return &UpdateBuilder{query: q, adapter: adapter}, nil
	case *DeleteBatchQuery:
		return &DeleteBuilder{query: q, adapter: adapter}, nil
	default:
		return nil, fmt.Errorf("unsupported batch query type: %T", q)
	}
}

// RowArgs binds row through builder and returns the driver arguments.
func RowArgs(builder Builder, row int) ([]any, error) {
	var b dbadapter.Binder
	if err := builder.BindParameters(&b, row); err != nil {
		return nil, err
	}
	return b.Args(), nil
}

func bindValue(adapter dbadapter.DbAdapter, b *dbadapter.Binder, index int, attr *schema.DbAttribute, value any) error {
	if err := adapter.BindParameter(b, value, index, attr.Type, attr.Scale); err != nil {
		return fmt.Errorf("bind %s.%s: %w", attr.Entity().Name, attr.Name, err)
	}
	return nil
}

func row(rows []Row, i int) (Row, error) {
	if i < 0 || i >= len(rows) {
		return Row{}, fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, i, len(rows))
	}
	return rows[i], nil
}

// InsertBuilder renders INSERT statements.
type InsertBuilder struct {
	query   *InsertBatchQuery
	adapter dbadapter.DbAdapter
}

// IsInsertAttribute reports whether the statement writes attr. Generated
// columns are left to the database, except a generated key the adapter
// can't read back: the PK generator assigns it before insert.
func (b *InsertBuilder) IsInsertAttribute(attr *schema.DbAttribute) bool {
	return !attr.Generated || (attr.PrimaryKey && !b.adapter.SupportsGeneratedKeys())
}

// InsertAttributes returns the written columns in table order.
func (b *InsertBuilder) InsertAttributes() []*schema.DbAttribute {
	var out []*schema.DbAttribute
	for _, attr := range b.query.DbAttributes() {
		if b.IsInsertAttribute(attr) {
			out = append(out, attr)
		}
	}
	return out
}

func (b *InsertBuilder) CreateSQLString() (string, error) {
	attrs := b.InsertAttributes()
	if len(attrs) == 0 {
		// every column is generated
		return "INSERT INTO " + b.adapter.QuoteTable(b.query.DbEntity()) + " DEFAULT VALUES", nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.adapter.QuoteTable(b.query.DbEntity()))
	sb.WriteString(" (")
	for i, attr := range attrs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.adapter.QuoteIdentifier(attr.Name))
	}
	sb.WriteString(") VALUES (")
	for i := range attrs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('?')
	}
	sb.WriteByte(')')
	return sb.String(), nil
}

func (b *InsertBuilder) BindParameters(binder *dbadapter.Binder, i int) error {
	r, err := row(b.query.Rows(), i)
	if err != nil {
		return err
	}
	binder.Reset()
	for j, attr := range b.InsertAttributes() {
		if err := bindValue(b.adapter, binder, j+1, attr, r.Values[attr.Name]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBuilder renders DELETE statements.
type DeleteBuilder struct {
	query   *DeleteBatchQuery
	adapter dbadapter.DbAdapter
}

func (b *DeleteBuilder) CreateSQLString() (string, error) {
	if len(b.query.QualifierAttributes()) == 0 {
		return "", fmt.Errorf("delete from %s: no qualifier columns", b.query.DbEntity().Name)
	}
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.adapter.QuoteTable(b.query.DbEntity()))
	appendWhere(&sb, b.adapter, &b.query.qualified)
	return sb.String(), nil
}

func (b *DeleteBuilder) BindParameters(binder *dbadapter.Binder, i int) error {
	r, err := row(b.query.Rows(), i)
	if err != nil {
		return err
	}
	binder.Reset()
	_, err = bindQualifier(binder, b.adapter, &b.query.qualified, r, 1)
	return err
}

// UpdateBuilder renders UPDATE statements.
type UpdateBuilder struct {
	query   *UpdateBatchQuery
	adapter dbadapter.DbAdapter
}

func (b *UpdateBuilder) CreateSQLString() (string, error) {
	entity := b.query.DbEntity()
	if len(b.query.UpdatedAttributes()) == 0 {
		return "", fmt.Errorf("update %s: no updated columns", entity.Name)
	}
	if len(b.query.QualifierAttributes()) == 0 {
		return "", fmt.Errorf("update %s: no qualifier columns", entity.Name)
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.adapter.QuoteTable(entity))
	sb.WriteString(" SET ")
	for i, attr := range b.query.UpdatedAttributes() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.adapter.QuoteIdentifier(attr.Name))
		sb.WriteString(" = ?")
	}
	appendWhere(&sb, b.adapter, &b.query.qualified)
	return sb.String(), nil
}

func (b *UpdateBuilder) BindParameters(binder *dbadapter.Binder, i int) error {
	r, err := row(b.query.Rows(), i)
	if err != nil {
		return err
	}
	binder.Reset()
	index := 1
	for _, attr := range b.query.UpdatedAttributes() {
		if err := bindValue(b.adapter, binder, index, attr, r.Values[attr.Name]); err != nil {
			return err
		}
		index++
	}
	_, err = bindQualifier(binder, b.adapter, &b.query.qualified, r, index)
	return err
}

// appendWhere writes the qualifier clause. NULL columns bind nothing.
func appendWhere(sb *strings.Builder, adapter dbadapter.DbAdapter, q *qualified) {
	sb.WriteString(" WHERE ")
	for i, attr := range q.QualifierAttributes() {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(adapter.QuoteIdentifier(attr.Name))
		if q.IsNull(attr) {
			sb.WriteString(" IS NULL")
		} else {
			sb.WriteString(" = ?")
		}
	}
}

// bindQualifier binds the non-NULL qualifier values starting at index and
// returns the next free index.
func bindQualifier(binder *dbadapter.Binder, adapter dbadapter.DbAdapter, q *qualified, r Row, index int) (int, error) {
	for _, attr := range q.QualifierAttributes() {
		if q.IsNull(attr) {
			continue
		}
		if err := bindValue(adapter, binder, index, attr, r.Qualifier[attr.Name]); err != nil {
			return index, err
		}
		index++
	}
	return index, nil
}
