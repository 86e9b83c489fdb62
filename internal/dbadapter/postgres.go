package dbadapter

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/roach88/objgraph/internal/schema"
)

// PostgresAdapter targets github.com/lib/pq.
type PostgresAdapter struct {
	GenericAdapter
}

// NewPostgresAdapter returns an adapter allocating keys from sequences.
func NewPostgresAdapter() *PostgresAdapter {
	return &PostgresAdapter{GenericAdapter{Generator: &SequencePKGenerator{}}}
}

func (a *PostgresAdapter) Name() string { return "postgres" }

func (a *PostgresAdapter) QuoteIdentifier(name string) string {
	if !a.QuoteIdentifiers {
		return name
	}
	return pq.QuoteIdentifier(name)
}

func (a *PostgresAdapter) QuoteTable(entity *schema.DbEntity) string { return quoteTable(a, entity) }

func (a *PostgresAdapter) LikeEscapeClause(escape rune) string {
	return " ESCAPE " + pq.QuoteLiteral(string(escape))
}

// BindParameter binds slices as PostgreSQL arrays.
func (a *PostgresAdapter) BindParameter(b *Binder, value any, index int, sqlType schema.SQLType, scale int) error {
	if value != nil {
		rv := reflect.ValueOf(value)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && sqlType != schema.TypeBlob {
			if _, isBytes := value.([]byte); !isBytes {
				b.Bind(index, pq.Array(value))
				return nil
			}
		}
	}
	return a.GenericAdapter.BindParameter(b, value, index, sqlType, scale)
}

// Rebind turns "?" placeholders into $1, $2, ... outside string literals
// and quoted identifiers.
func (a *PostgresAdapter) Rebind(sql string) string {
	var sb strings.Builder
	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func (a *PostgresAdapter) TypeName(attr *schema.DbAttribute) string {
	switch attr.Type {
	case schema.TypeDouble:
		return "DOUBLE PRECISION"
	case schema.TypeClob:
		return "TEXT"
	case schema.TypeBlob:
		return "BYTEA"
	}
	return genericTypeName(attr)
}

func (a *PostgresAdapter) SchemaStatements(entities []*schema.DbEntity) []string {
	out := createTables(a, entities, a.TypeName, nil)
	for _, e := range schema.SortByDependency(entities) {
		for _, pk := range e.PrimaryKeys() {
			if pk.Generated {
				out = append(out, "CREATE SEQUENCE "+SequenceName(e.Name)+" START 200")
				break
			}
		}
	}
	return out
}
