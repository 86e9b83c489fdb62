package dbadapter

import (
	"context"
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/objgraph/internal/schema"
)

// DbAdapter is the database-specific part of SQL generation and binding.
type DbAdapter interface {
	Name() string

	// QuoteIdentifier quotes one identifier when quoting is enabled.
	QuoteIdentifier(name string) string

	// QuoteTable returns the possibly schema-qualified, quoted table name.
	QuoteTable(entity *schema.DbEntity) string

	// SupportsGeneratedKeys reports whether the driver returns keys
	// generated on insert.
	SupportsGeneratedKeys() bool

	// BindParameter converts value for a column of sqlType and binds it at
	// the 1-based index.
	BindParameter(b *Binder, value any, index int, sqlType schema.SQLType, scale int) error

	// LikeEscapeClause renders the escape clause of a LIKE predicate,
	// including its leading space.
	LikeEscapeClause(escape rune) string

	// LimitClause renders the LIMIT/OFFSET suffix of a select, including
	// its leading space. Zero values mean no limit and no offset.
	LimitClause(limit, offset int) string

	// Rebind rewrites "?" placeholders for the driver.
	Rebind(sql string) string

	// TypeName returns the DDL type of a column.
	TypeName(attr *schema.DbAttribute) string

	// SchemaStatements returns the DDL creating the tables and whatever key
	// generation support the adapter needs.
	SchemaStatements(entities []*schema.DbEntity) []string

	// PKGenerator returns the generator for keys the database does not
	// generate.
	PKGenerator() PKGenerator
}

// Querier is the part of *sql.DB and *sql.Tx key generators need.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) RowScanner
	ExecContext(ctx context.Context, query string, args ...any) (int64, error)
}

// RowScanner scans a single result row.
type RowScanner interface {
	Scan(dest ...any) error
}

// PKGenerator allocates primary key values before insert.
type PKGenerator interface {
	GeneratePK(ctx context.Context, q Querier, attr *schema.DbAttribute) (any, error)
}

// GenericAdapter is the generic adapter. Dialects embed it and
// override what differs.
type GenericAdapter struct {
	// QuoteIdentifiers enables identifier quoting.
	QuoteIdentifiers bool
	Generator        PKGenerator
}

func (a *GenericAdapter) Name() string { return "generic" }

func (a *GenericAdapter) QuoteIdentifier(name string) string {
	if !a.QuoteIdentifiers {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (a *GenericAdapter) QuoteTable(entity *schema.DbEntity) string {
	return quoteTable(a, entity)
}

func quoteTable(a interface{ QuoteIdentifier(string) string }, entity *schema.DbEntity) string {
	if entity.Schema == "" {
		return a.QuoteIdentifier(entity.Name)
	}
	return a.QuoteIdentifier(entity.Schema) + "." + a.QuoteIdentifier(entity.Name)
}

func (a *GenericAdapter) SupportsGeneratedKeys() bool { return false }

func (a *GenericAdapter) BindParameter(b *Binder, value any, index int, sqlType schema.SQLType, scale int) error {
	v, err := convertValue(value, sqlType, scale)
	if err != nil {
		return err
	}
	b.Bind(index, v)
	return nil
}

// LikeEscapeClause renders the JDBC escape syntax.
func (a *GenericAdapter) LikeEscapeClause(escape rune) string {
	return " {escape '" + string(escape) + "'}"
}

func (a *GenericAdapter) LimitClause(limit, offset int) string {
	var sb strings.Builder
	if limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(limit))
	}
	if offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(offset))
	}
	return sb.String()
}

func (a *GenericAdapter) Rebind(sql string) string { return sql }

func (a *GenericAdapter) TypeName(attr *schema.DbAttribute) string {
	return genericTypeName(attr)
}

func (a *GenericAdapter) SchemaStatements(entities []*schema.DbEntity) []string {
	out := createTables(a, entities, a.TypeName, nil)
	if g, ok := a.PKGenerator().(*TablePKGenerator); ok {
		out = append(out, g.SchemaStatements()...)
	}
	return out
}

func (a *GenericAdapter) PKGenerator() PKGenerator {
	if a.Generator == nil {
		a.Generator = &TablePKGenerator{}
	}
	return a.Generator
}

func genericTypeName(attr *schema.DbAttribute) string {
	switch attr.Type {
	case schema.TypeChar, schema.TypeVarchar:
		if attr.MaxLength > 0 {
			return fmt.Sprintf("%s(%d)", attr.Type, attr.MaxLength)
		}
		return attr.Type.String()
	case schema.TypeDecimal:
		if attr.MaxLength > 0 {
			return fmt.Sprintf("DECIMAL(%d, %d)", attr.MaxLength, attr.Scale)
		}
		return "DECIMAL"
	case schema.TypeUnknown:
		return "VARCHAR"
	}
	return attr.Type.String()
}

// convertValue applies the generic per-type conversions.
func convertValue(value any, sqlType schema.SQLType, scale int) (any, error) {
	if value == nil {
		return nil, nil
	}
	if valuer, ok := value.(driver.Valuer); ok {
		return valuer.Value()
	}
	switch sqlType {
	case schema.TypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case schema.TypeDecimal:
		if f, ok := value.(float64); ok && scale > 0 {
			return strconv.FormatFloat(roundScale(f, scale), 'f', scale, 64), nil
		}
	case schema.TypeInteger, schema.TypeBigInt, schema.TypeSmallInt:
		if s, ok := value.(string); ok {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("can't bind %q as %s: %w", s, sqlType, err)
			}
			return n, nil
		}
	}
	return value, nil
}

func roundScale(f float64, scale int) float64 {
	p := math.Pow10(scale)
	return math.Round(f*p) / p
}
