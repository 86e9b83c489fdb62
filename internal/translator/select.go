package translator

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/query"
	"github.com/roach88/objgraph/internal/schema"
)

// Statement is a translated SELECT.
type Statement struct {
	SQL    string
	Params []dbadapter.ParameterBinding

	// ResultColumns are the root table columns, in select list order. The
	// select list may continue with ordering expressions of a DISTINCT
	// query; those are not part of the result.
	ResultColumns []*schema.DbAttribute

	Distinct bool
}

// Args binds the parameters through adapter.
func (s *Statement) Args(adapter dbadapter.DbAdapter) ([]any, error) {
	return dbadapter.BindAll(adapter, s.Params)
}

// SelectTranslator builds the SQL of a SelectQuery.
type SelectTranslator struct {
	query    *query.SelectQuery
	adapter  dbadapter.DbAdapter
	resolver *schema.EntityResolver

	caseInsensitive bool
	tableAliases    bool
}

// Option configures a SelectTranslator.
type Option func(*SelectTranslator)

// WithCaseInsensitiveLike renders ignore-case LIKE as plain LIKE.
func WithCaseInsensitiveLike(on bool) Option {
	return func(t *SelectTranslator) { t.caseInsensitive = on }
}

// WithTableAliases turns table aliases on or off. Default: on.
func WithTableAliases(on bool) Option {
	return func(t *SelectTranslator) { t.tableAliases = on }
}

// NewSelectTranslator returns a translator for q.
func NewSelectTranslator(q *query.SelectQuery, adapter dbadapter.DbAdapter, resolver *schema.EntityResolver, opts ...Option) *SelectTranslator {
	t := &SelectTranslator{
		query:        q,
		adapter:      adapter,
		resolver:     resolver,
		tableAliases: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreateSQL translates the query.
func (t *SelectTranslator) CreateSQL() (*Statement, error) {
	entity, err := t.resolver.LookupObjEntity(t.query.EntityName)
	if err != nil {
		return nil, err
	}
	db := entity.DbEntity()
	if db == nil {
		return nil, fmt.Errorf("%w: %s has no db entity", schema.ErrUnknownEntity, entity.Name)
	}

	stmt, a, err := t.build(entity, false)
	if err != nil {
		return nil, err
	}
	if !t.tableAliases && a.HasJoins() {
		// columns rendered before the first join were left bare
		if stmt, _, err = t.build(entity, true); err != nil {
			return nil, err
		}
	}
	slog.Debug("translated select",
		"entity", entity.Name,
		"sql", stmt.SQL,
		"params", len(stmt.Params),
	)
	return stmt, nil
}

// build renders the statement once. tableNames qualifies columns with
// table names when aliases are off.
func (t *SelectTranslator) build(entity *schema.ObjEntity, tableNames bool) (*Statement, *QueryAssembler, error) {
	db := entity.DbEntity()
	a := NewQueryAssembler(t.adapter, entity)
	a.SetTableAliases(t.tableAliases)
	a.SetTableNames(tableNames)
	qualifiers := NewQualifierTranslator(a)
	qualifiers.SetCaseInsensitive(t.caseInsensitive)

	where, err := qualifiers.AppendQualifier(t.query.Qualifier)
	if err != nil {
		return nil, nil, err
	}
	orderBy, orderColumns, err := t.appendOrderings(qualifiers)
	if err != nil {
		return nil, nil, err
	}

	columns := db.Attributes()
	selectList := make([]string, 0, len(columns)+len(orderColumns))
	for _, attr := range columns {
		selectList = append(selectList, a.rootColumn(attr))
	}

	distinct := a.IsForcingDistinct() || t.query.Distinct
	if distinct {
		// DISTINCT needs ORDER BY expressions in the select list
		for _, c := range orderColumns {
			if !slices.Contains(selectList, c) {
				selectList = append(selectList, c)
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(selectList, ", "))
	sb.WriteString(" FROM ")
	a.appendFrom(&sb)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}
	sb.WriteString(t.adapter.LimitClause(t.query.FetchLimit, t.query.FetchOffset))

	stmt := &Statement{
		SQL:           sb.String(),
		Params:        a.Params(),
		ResultColumns: columns,
		Distinct:      distinct,
	}
	return stmt, a, nil
}

// appendOrderings renders the ORDER BY list. It also returns the column
// expressions, without direction, for the DISTINCT select list.
func (t *SelectTranslator) appendOrderings(qualifiers *QualifierTranslator) (string, []string, error) {
	if len(t.query.Orderings) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(t.query.Orderings))
	columns := make([]string, 0, len(t.query.Orderings))
	for _, o := range t.query.Orderings {
		column, err := qualifiers.Translate(exp.NewObjPath(o.Path))
		if err != nil {
			return "", nil, fmt.Errorf("ordering %s: %w", o, err)
		}
		if o.IgnoreCase {
			column = "UPPER(" + column + ")"
		}
		columns = append(columns, column)
		if o.Descending {
			column += " DESC"
		}
		parts = append(parts, column)
	}
	return strings.Join(parts, ", "), columns, nil
}
