package fault

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/query"
)

// ToOneFault stands in for an unresolved to-one relationship. It has no
// state; one value serves every object and relationship.
type ToOneFault struct{}

var _ object.Fault = ToOneFault{}

// ResolveFault fetches the target of relationship on owner. It returns nil
// when there is no target and ErrTooManyObjects when there is more than
// one.
func (ToOneFault) ResolveFault(ctx context.Context, owner object.Persistent, relationship string) (any, error) {
	if owner.PersistenceState().IsTransient() {
		return nil, nil
	}
	oc := owner.ObjectContext()
	if oc == nil {
		return nil, fmt.Errorf("%w: %s", object.ErrNotRegistered, owner.ObjectID())
	}

	results, err := oc.PerformQuery(ctx, faultQuery(owner, relationship))
	sampleResolve("to-one", err)
	if err != nil {
		return nil, fmt.Errorf("resolve %s.%s: %w", owner.EntityName(), relationship, err)
	}

	slog.Debug("resolved to-one fault",
		"owner", owner.ObjectID(),
		"relationship", relationship,
		"found", len(results),
	)
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	}
	return nil, fmt.Errorf("%w: %s.%s of %s has %d", ErrTooManyObjects,
		owner.EntityName(), relationship, owner.ObjectID(), len(results))
}

// faultQuery does not force a refresh, so a context holding the resolved
// relationship may answer it from memory.
func faultQuery(owner object.Persistent, relationship string) *query.RelationshipQuery {
	return &query.RelationshipQuery{ObjectID: owner.ObjectID(), RelationshipName: relationship}
}
