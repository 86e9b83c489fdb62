package testutil

import (
	"context"
	"sync"

	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/schema"
)

// SequenceGenerator is a deterministic key generator for tests. Each table
// counts from 1 independently and nothing is read from the database.
//
// Unlike the adapter generators, SequenceGenerator can be reset so the same
// scenario produces the same keys on every run.
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceGenerator struct {
	mu   sync.Mutex
	next map[string]int64
}

var _ dbadapter.PKGenerator = (*SequenceGenerator)(nil)

// NewSequenceGenerator returns a generator whose first key per table is 1.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{next: make(map[string]int64)}
}

// GeneratePK returns the next key of attr's table. q is not used.
func (g *SequenceGenerator) GeneratePK(_ context.Context, _ dbadapter.Querier, attr *schema.DbAttribute) (any, error) {
	return g.Next(attr.Entity().Name), nil
}

// Next increments and returns the counter of table.
func (g *SequenceGenerator) Next(table string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next[table]++
	return g.next[table]
}

// Current returns the last key handed out for table, 0 if none.
func (g *SequenceGenerator) Current(table string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next[table]
}

// Reset sets every counter back to 0.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.next)
}
