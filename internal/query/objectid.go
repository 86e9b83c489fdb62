package query

import (
	"fmt"

	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
)

// IDPolicy controls whether an ObjectIDQuery may be answered from memory.
type IDPolicy int

const (
	// IDCache returns a registered object when there is one.
	IDCache IDPolicy = iota
	// IDCacheRefresh always fetches.
	IDCacheRefresh
	// IDCacheNoRefresh never fetches.
	IDCacheNoRefresh
)

// ObjectIDQuery fetches one object by id.
type ObjectIDQuery struct {
	ID               *object.ObjectID
	Policy           IDPolicy
	FetchingDataRows bool
}

// NewObjectIDQuery returns a query for id with the IDCache policy.
func NewObjectIDQuery(id *object.ObjectID) *ObjectIDQuery {
	return &ObjectIDQuery{ID: id}
}

// IsFetchMandatory reports whether the query must hit the channel.
func (q *ObjectIDQuery) IsFetchMandatory() bool { return q.Policy == IDCacheRefresh }

// IsFetchAllowed reports whether the query may hit the channel at all.
func (q *ObjectIDQuery) IsFetchAllowed() bool { return q.Policy != IDCacheNoRefresh }

func (q *ObjectIDQuery) Metadata(resolver *schema.EntityResolver) (object.QueryMetadata, error) {
	entity, err := resolver.LookupObjEntity(q.ID.EntityName())
	if err != nil {
		return object.QueryMetadata{}, fmt.Errorf("object id query: %w", err)
	}
	return object.QueryMetadata{
		ObjEntity:         entity,
		FetchingDataRows:  q.FetchingDataRows,
		RefreshingObjects: q.IsFetchMandatory(),
	}, nil
}

// ReplacementQuery returns the select matching the id's key columns.
func (q *ObjectIDQuery) ReplacementQuery(resolver *schema.EntityResolver) (*SelectQuery, error) {
	if q.ID.IsTemporary() {
		return nil, fmt.Errorf("%w: %s", object.ErrTemporaryID, q.ID)
	}
	if _, err := resolver.LookupObjEntity(q.ID.EntityName()); err != nil {
		return nil, err
	}
	values := q.ID.Values()
	matches := make([]*exp.Expression, len(values))
	for i, v := range values {
		matches[i] = exp.MatchDbExp(v.Column, v.Value)
	}
	s := NewSelectQuery(q.ID.EntityName(), exp.AndOf(matches...))
	s.FetchingDataRows = q.FetchingDataRows
	return s, nil
}
