package query

import (
	"fmt"

	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
)

// RelationshipQuery fetches the targets of one relationship of one object.
type RelationshipQuery struct {
	ObjectID         *object.ObjectID
	RelationshipName string
	Refreshing       bool
}

// NewRelationshipQuery returns a refreshing query for the relationship.
func NewRelationshipQuery(id *object.ObjectID, relationship string) *RelationshipQuery {
	return &RelationshipQuery{ObjectID: id, RelationshipName: relationship, Refreshing: true}
}

// Relationship resolves the queried relationship.
func (q *RelationshipQuery) Relationship(resolver *schema.EntityResolver) (*schema.ObjRelationship, error) {
	source, err := resolver.LookupObjEntity(q.ObjectID.EntityName())
	if err != nil {
		return nil, fmt.Errorf("relationship query: %w", err)
	}
	rel := source.Relationship(q.RelationshipName)
	if rel == nil {
		return nil, fmt.Errorf("%w: %s.%s", object.ErrUnknownProperty, source.Name, q.RelationshipName)
	}
	return rel, nil
}

func (q *RelationshipQuery) Metadata(resolver *schema.EntityResolver) (object.QueryMetadata, error) {
	rel, err := q.Relationship(resolver)
	if err != nil {
		return object.QueryMetadata{}, err
	}
	target := rel.TargetEntity()
	if target == nil {
		return object.QueryMetadata{}, fmt.Errorf("relationship query: %w: %s", schema.ErrUnknownEntity, rel.TargetEntityName)
	}
	return object.QueryMetadata{
		ObjEntity:         target,
		RefreshingObjects: q.Refreshing,
	}, nil
}

// ReplacementQuery returns a select on the target entity matching the
// reverse db path against the source id.
func (q *RelationshipQuery) ReplacementQuery(resolver *schema.EntityResolver) (*SelectQuery, error) {
	if q.ObjectID.IsTemporary() {
		return nil, fmt.Errorf("%w: %s", object.ErrTemporaryID, q.ObjectID)
	}
	rel, err := q.Relationship(resolver)
	if err != nil {
		return nil, err
	}
	reversePath, err := rel.ReverseDbRelationshipPath()
	if err != nil {
		return nil, fmt.Errorf("relationship query: %w", err)
	}
	s := NewSelectQuery(rel.TargetEntityName, exp.MatchDbExp(reversePath, q.ObjectID))
	s.Refreshing = q.Refreshing
	return s, nil
}
