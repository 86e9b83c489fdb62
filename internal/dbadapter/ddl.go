package dbadapter

import (
	"strings"

	"github.com/roach88/objgraph/internal/schema"
)

type quoter interface {
	QuoteIdentifier(name string) string
	QuoteTable(entity *schema.DbEntity) string
}

// createTables renders CREATE TABLE statements, masters first. inlinePK
// reports whether a single-column key is declared on the column itself.
func createTables(q quoter, entities []*schema.DbEntity, typeName func(*schema.DbAttribute) string, inlinePK func(*schema.DbAttribute) bool) []string {
	sorted := schema.SortByDependency(entities)
	out := make([]string, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, createTable(q, e, typeName, inlinePK))
	}
	return out
}

func createTable(q quoter, e *schema.DbEntity, typeName func(*schema.DbAttribute) string, inlinePK func(*schema.DbAttribute) bool) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(q.QuoteTable(e))
	sb.WriteString(" (")

	pks := e.PrimaryKeys()
	inline := len(pks) == 1 && inlinePK != nil && inlinePK(pks[0])

	var lines []string
	for _, a := range e.Attributes() {
		line := q.QuoteIdentifier(a.Name) + " " + typeName(a)
		switch {
		case inline && a.PrimaryKey:
			line += " PRIMARY KEY"
		case a.Mandatory:
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}
	if len(pks) > 0 && !inline {
		cols := make([]string, len(pks))
		for i, pk := range pks {
			cols[i] = q.QuoteIdentifier(pk.Name)
		}
		lines = append(lines, "PRIMARY KEY ("+strings.Join(cols, ", ")+")")
	}
	for _, rel := range e.Relationships() {
		if !rel.ReferencesTarget() {
			continue
		}
		target := rel.TargetEntity()
		src := make([]string, 0, len(rel.Joins()))
		dst := make([]string, 0, len(rel.Joins()))
		for _, j := range rel.Joins() {
			src = append(src, q.QuoteIdentifier(j.SourceName))
			dst = append(dst, q.QuoteIdentifier(j.TargetName))
		}
		lines = append(lines, "FOREIGN KEY ("+strings.Join(src, ", ")+") REFERENCES "+
			q.QuoteTable(target)+" ("+strings.Join(dst, ", ")+")")
	}

	sb.WriteString(strings.Join(lines, ", "))
	sb.WriteString(")")
	return sb.String()
}
