package dbadapter

import (
	"strconv"

	"github.com/roach88/objgraph/internal/schema"
)

// SQLiteAdapter targets github.com/mattn/go-sqlite3.
type SQLiteAdapter struct {
	GenericAdapter
}

// NewSQLiteAdapter returns an adapter with quoting disabled.
func NewSQLiteAdapter() *SQLiteAdapter { return &SQLiteAdapter{} }

func (a *SQLiteAdapter) Name() string { return "sqlite" }

// SupportsGeneratedKeys is true: INTEGER PRIMARY KEY columns alias the
// rowid and the driver reports it as LastInsertId.
func (a *SQLiteAdapter) SupportsGeneratedKeys() bool { return true }

func (a *SQLiteAdapter) LikeEscapeClause(escape rune) string {
	return " ESCAPE '" + string(escape) + "'"
}

// LimitClause uses LIMIT -1 for an offset without a limit; SQLite does not
// accept a bare OFFSET.
func (a *SQLiteAdapter) LimitClause(limit, offset int) string {
	if offset > 0 && limit <= 0 {
		return " LIMIT -1 OFFSET " + strconv.Itoa(offset)
	}
	return a.GenericAdapter.LimitClause(limit, offset)
}

func (a *SQLiteAdapter) BindParameter(b *Binder, value any, index int, sqlType schema.SQLType, scale int) error {
	v, err := convertValue(value, sqlType, scale)
	if err != nil {
		return err
	}
	if flag, ok := v.(bool); ok {
		// stored as 0/1 so comparisons with integer literals work
		if flag {
			v = int64(1)
		} else {
			v = int64(0)
		}
	}
	b.Bind(index, v)
	return nil
}

func (a *SQLiteAdapter) TypeName(attr *schema.DbAttribute) string {
	switch attr.Type {
	case schema.TypeInteger, schema.TypeBigInt, schema.TypeSmallInt, schema.TypeBoolean:
		return "INTEGER"
	case schema.TypeDouble:
		return "REAL"
	case schema.TypeDecimal:
		return "NUMERIC"
	case schema.TypeChar, schema.TypeVarchar, schema.TypeClob, schema.TypeUnknown:
		return "TEXT"
	case schema.TypeBlob:
		return "BLOB"
	}
	return genericTypeName(attr)
}

func (a *SQLiteAdapter) SchemaStatements(entities []*schema.DbEntity) []string {
	return createTables(a, entities, a.TypeName, func(pk *schema.DbAttribute) bool {
		return pk.Generated && pk.Type == schema.TypeInteger
	})
}
