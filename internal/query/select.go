package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
)

// Ordering sorts results by an object path.
type Ordering struct {
	Path       string
	Descending bool
	IgnoreCase bool
}

func (o Ordering) String() string {
	var sb strings.Builder
	sb.WriteString(o.Path)
	if o.Descending {
		sb.WriteString(" desc")
	}
	if o.IgnoreCase {
		sb.WriteString(" ignorecase")
	}
	return sb.String()
}

// SelectQuery fetches objects of one entity.
type SelectQuery struct {
	EntityName       string
	Qualifier        *exp.Expression
	Orderings        []Ordering
	Prefetch         *object.PrefetchTreeNode
	Distinct         bool
	FetchLimit       int
	FetchOffset      int
	PageSize         int
	FetchingDataRows bool
	CacheStrategy    object.CacheStrategy

	// Refreshing makes fetched rows overwrite registered objects.
	Refreshing bool
}

// NewSelectQuery returns a query for entity. qualifier may be nil.
func NewSelectQuery(entity string, qualifier *exp.Expression) *SelectQuery {
	return &SelectQuery{EntityName: entity, Qualifier: qualifier, Refreshing: true}
}

// AndQualifier ANDs q into the qualifier.
func (s *SelectQuery) AndQualifier(q *exp.Expression) {
	if s.Qualifier == nil {
		s.Qualifier = q
		return
	}
	s.Qualifier = s.Qualifier.AndExp(q)
}

// AddOrdering appends an ordering.
func (s *SelectQuery) AddOrdering(path string, descending bool) {
	s.Orderings = append(s.Orderings, Ordering{Path: path, Descending: descending})
}

// AddPrefetch adds a relationship path to the prefetch tree.
func (s *SelectQuery) AddPrefetch(path string) *object.PrefetchTreeNode {
	if s.Prefetch == nil {
		s.Prefetch = object.NewPrefetchTree()
	}
	return s.Prefetch.AddPath(path)
}

// Metadata resolves the root entity and derives the cache key.
func (s *SelectQuery) Metadata(resolver *schema.EntityResolver) (object.QueryMetadata, error) {
	entity, err := resolver.LookupObjEntity(s.EntityName)
	if err != nil {
		return object.QueryMetadata{}, fmt.Errorf("select query: %w", err)
	}
	md := object.QueryMetadata{
		ObjEntity:         entity,
		CacheStrategy:     s.CacheStrategy,
		FetchingDataRows:  s.FetchingDataRows,
		RefreshingObjects: s.Refreshing,
		Prefetch:          s.Prefetch,
		FetchLimit:        s.FetchLimit,
		FetchOffset:       s.FetchOffset,
		PageSize:          s.PageSize,
	}
	if s.CacheStrategy != object.NoCache {
		md.CacheKey = s.CacheKey()
	}
	return md, nil
}

// CacheKey returns the key of the query result in a query cache.
func (s *SelectQuery) CacheKey() string {
	qualifier := ""
	if s.Qualifier != nil {
		qualifier = s.Qualifier.String()
	}
	orderings := make([]string, len(s.Orderings))
	for i, o := range s.Orderings {
		orderings[i] = o.String()
	}
	return cacheKey("select",
		s.EntityName,
		qualifier,
		strings.Join(orderings, ","),
		strings.Join(s.Prefetch.NonPhantomPaths(), ","),
		strconv.FormatBool(s.Distinct),
		strconv.Itoa(s.FetchLimit),
		strconv.Itoa(s.FetchOffset),
		strconv.FormatBool(s.FetchingDataRows),
	)
}
