package dbadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/objgraph/internal/schema"
)

// AutoPKTable is the bookkeeping table of TablePKGenerator.
const AutoPKTable = "auto_pk_support"

// TablePKGenerator allocates keys from a table holding the next value per
// table. Keys are reserved in ranges of CacheSize to save round trips.
type TablePKGenerator struct {
	CacheSize int

	mu     sync.Mutex
	ranges map[string]*pkRange
}

type pkRange struct{ next, end int64 }

// SchemaStatements returns the DDL of the bookkeeping table.
func (g *TablePKGenerator) SchemaStatements() []string {
	return []string{
		"CREATE TABLE " + AutoPKTable + " (table_name VARCHAR(250) NOT NULL, next_id BIGINT NOT NULL, PRIMARY KEY (table_name))",
	}
}

func (g *TablePKGenerator) GeneratePK(ctx context.Context, q Querier, attr *schema.DbAttribute) (any, error) {
	if !attr.Type.IsNumeric() {
		return nil, fmt.Errorf("can't generate key for non-numeric column %s.%s", attr.Entity().Name, attr.Name)
	}
	table := attr.Entity().Name
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ranges == nil {
		g.ranges = make(map[string]*pkRange)
	}
	r := g.ranges[table]
	if r == nil || r.next >= r.end {
		size := int64(g.CacheSize)
		if size <= 0 {
			size = 20
		}
		start, err := g.reserve(ctx, q, table, size)
		if err != nil {
			return nil, err
		}
		r = &pkRange{next: start, end: start + size}
		g.ranges[table] = r
	}
	v := r.next
	r.next++
	return v, nil
}

func (g *TablePKGenerator) reserve(ctx context.Context, q Querier, table string, size int64) (int64, error) {
	var next int64
	err := q.QueryRowContext(ctx, "SELECT next_id FROM "+AutoPKTable+" WHERE table_name = ?", table).Scan(&next)
	if err != nil {
		// first key of the table
		if _, insertErr := q.ExecContext(ctx, "INSERT INTO "+AutoPKTable+" (table_name, next_id) VALUES (?, ?)", table, 1+size); insertErr != nil {
			return 0, fmt.Errorf("failed to reserve keys for %s: %w", table, err)
		}
		return 1, nil
	}
	n, err := q.ExecContext(ctx, "UPDATE "+AutoPKTable+" SET next_id = ? WHERE table_name = ? AND next_id = ?", next+size, table, next)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve keys for %s: %w", table, err)
	}
	if n != 1 {
		return 0, fmt.Errorf("concurrent key reservation for %s", table)
	}
	return next, nil
}

// SequencePKGenerator allocates keys from one database sequence per table,
// named pk_<table>.
type SequencePKGenerator struct{}

// SequenceName returns the sequence backing table.
func SequenceName(table string) string { return "pk_" + table }

func (g *SequencePKGenerator) GeneratePK(ctx context.Context, q Querier, attr *schema.DbAttribute) (any, error) {
	if !attr.Type.IsNumeric() {
		return nil, fmt.Errorf("can't generate key for non-numeric column %s.%s", attr.Entity().Name, attr.Name)
	}
	var v int64
	query := "SELECT nextval('" + SequenceName(attr.Entity().Name) + "')"
	if err := q.QueryRowContext(ctx, query).Scan(&v); err != nil {
		return nil, fmt.Errorf("failed to read sequence %s: %w", SequenceName(attr.Entity().Name), err)
	}
	return v, nil
}
