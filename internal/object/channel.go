package object

import (
	"context"
	"fmt"

	"github.com/roach88/objgraph/internal/schema"
)

// CacheStrategy selects how a query result is cached by the context that
// runs it.
type CacheStrategy int

const (
	NoCache CacheStrategy = iota
	LocalCache
	LocalCacheRefresh
)

func (s CacheStrategy) String() string {
	switch s {
	case NoCache:
		return "NO_CACHE"
	case LocalCache:
		return "LOCAL_CACHE"
	case LocalCacheRefresh:
		return "LOCAL_CACHE_REFRESH"
	}
	return fmt.Sprintf("CacheStrategy(%d)", int(s))
}

// ParseCacheStrategy accepts the names printed by String, case-sensitive.
func ParseCacheStrategy(name string) (CacheStrategy, error) {
	for s := NoCache; s <= LocalCacheRefresh; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return NoCache, fmt.Errorf("unknown cache strategy %q", name)
}

// QueryMetadata describes how a query must be run.
type QueryMetadata struct {
	ObjEntity         *schema.ObjEntity
	CacheStrategy     CacheStrategy
	CacheKey          string
	FetchingDataRows  bool
	RefreshingObjects bool
	Prefetch          *PrefetchTreeNode
	FetchLimit        int
	FetchOffset       int
	PageSize          int
}

// Query is anything a DataChannel can run.
type Query interface {
	Metadata(resolver *schema.EntityResolver) (QueryMetadata, error)
}

// DataRow is one fetched row keyed by column name.
type DataRow map[string]any

// QueryResponse holds the results of one query in order. Each result is
// either an object list or an update count.
type QueryResponse struct {
	results []any
}

// NewListResponse returns a response with a single list.
func NewListResponse(objects []any) *QueryResponse {
	return &QueryResponse{results: []any{objects}}
}

// NewUpdateResponse returns a response with update counts.
func NewUpdateResponse(counts ...int) *QueryResponse {
	r := &QueryResponse{}
	for _, c := range counts {
		r.results = append(r.results, c)
	}
	return r
}

// AddList appends a list result.
func (r *QueryResponse) AddList(objects []any) { r.results = append(r.results, objects) }

// AddUpdateCount appends an update count.
func (r *QueryResponse) AddUpdateCount(count int) { r.results = append(r.results, count) }

// Size returns the number of results.
func (r *QueryResponse) Size() int { return len(r.results) }

// FirstList returns the first list result, or nil.
func (r *QueryResponse) FirstList() []any {
	for _, res := range r.results {
		if list, ok := res.([]any); ok {
			return list
		}
	}
	return nil
}

// UpdateCounts returns the update counts in order.
func (r *QueryResponse) UpdateCounts() []int {
	var counts []int
	for _, res := range r.results {
		if c, ok := res.(int); ok {
			counts = append(counts, c)
		}
	}
	return counts
}

// Lists returns every list result in order.
func (r *QueryResponse) Lists() [][]any {
	var lists [][]any
	for _, res := range r.results {
		if list, ok := res.([]any); ok {
			lists = append(lists, list)
		}
	}
	return lists
}

// MapLists returns a copy of r with fn applied to every list result.
func (r *QueryResponse) MapLists(fn func([]any) ([]any, error)) (*QueryResponse, error) {
	out := &QueryResponse{results: make([]any, len(r.results))}
	for i, res := range r.results {
		list, ok := res.([]any)
		if !ok {
			out.results[i] = res
			continue
		}
		mapped, err := fn(list)
		if err != nil {
			return nil, err
		}
		out.results[i] = mapped
	}
	return out, nil
}

// SyncType selects what OnSync does with a change set.
type SyncType int

const (
	// FlushSync applies changes to the receiving channel only.
	FlushSync SyncType = iota
	// FlushCascadeSync applies changes and commits them all the way down.
	FlushCascadeSync
	// RollbackCascadeSync discards changes all the way down.
	RollbackCascadeSync
)

// GraphManager is the identity map of a context.
type GraphManager interface {
	Node(id *ObjectID) Persistent
	RegisterNode(id *ObjectID, o Persistent)
	UnregisterNode(id *ObjectID) Persistent
}

// DataChannel runs queries and accepts change sets. Object contexts and
// the data domain are channels.
type DataChannel interface {
	EntityResolver() *schema.EntityResolver

	// OnQuery runs q on behalf of originating. Result objects belong to
	// originating or are copied into it by the caller.
	OnQuery(ctx context.Context, originating ObjectContext, q Query) (*QueryResponse, error)

	// OnSync applies changes made in originating and returns the diff the
	// originating context must apply in turn (id replacements).
	OnSync(ctx context.Context, originating ObjectContext, changes GraphDiff, syncType SyncType) (GraphDiff, error)
}

// ObjectContext manages a graph of persistent objects.
type ObjectContext interface {
	EntityResolver() *schema.EntityResolver
	ClassDescriptor(entity string) *ClassDescriptor
	GraphManager() GraphManager
	Channel() DataChannel

	// PerformQuery runs q and returns the first list of the response.
	PerformQuery(ctx context.Context, q Query) ([]any, error)
	PerformGenericQuery(ctx context.Context, q Query) (*QueryResponse, error)

	// PrepareForAccess loads a HOLLOW object before one of its properties
	// is read or written.
	PrepareForAccess(ctx context.Context, o Persistent, property string, lazyFaulting bool) error

	// PropertyChanged records a change made to a registered object.
	PropertyChanged(o Persistent, property string, oldValue, newValue any)

	// LocalObject returns the instance of o's id in this context, creating
	// a HOLLOW placeholder when it is not registered.
	LocalObject(o Persistent) (Persistent, error)
}
