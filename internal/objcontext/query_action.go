package objcontext

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/query"
)

// QueryInterceptor may answer a query. A nil response means the query was
// not handled and the pipeline continues.
type QueryInterceptor func(ctx context.Context, a *QueryAction) (*object.QueryResponse, error)

// QueryActionHooks are the interceptors that run between the relationship
// shortcut and the local cache, in field order. Nil hooks are skipped.
type QueryActionHooks struct {
	Refresh   QueryInterceptor
	Internal  QueryInterceptor
	Paginated QueryInterceptor
}

// DefaultQueryActionHooks returns hooks with InvalidateOnRefresh as the
// refresh hook.
func DefaultQueryActionHooks() QueryActionHooks {
	return QueryActionHooks{Refresh: InvalidateOnRefresh}
}

// InvalidateOnRefresh turns the registered, unmodified object of a
// fetch-mandatory ObjectIDQuery HOLLOW and invalidates its relationships,
// so the fetch repopulates it. It never answers the query.
func InvalidateOnRefresh(_ context.Context, a *QueryAction) (*object.QueryResponse, error) {
	q, ok := a.query.(*query.ObjectIDQuery)
	if !ok || !q.IsFetchMandatory() {
		return nil, nil
	}
	o := a.acting.graph.Node(q.ID)
	if o == nil || o.PersistenceState() != object.Committed {
		return nil, nil
	}
	o.SetPersistenceState(object.Hollow)
	if d := a.acting.ClassDescriptor(o.EntityName()); d != nil {
		for _, p := range d.Properties() {
			switch p.Kind() {
			case object.ToManyProperty:
				if h, ok := p.ReadDirectly(o).(object.ToManyHolder); ok {
					h.Invalidate()
				}
			case object.ToOneProperty:
				p.WriteDirectly(o, a.acting.registry.ToOneFault)
			}
		}
	}
	return nil, nil
}

// QueryAction runs one query for a target context on behalf of an acting
// context. The acting context is the one whose caches and channel are
// used; the target context receives the result objects.
type QueryAction struct {
	acting   *Context
	target   object.ObjectContext
	query    object.Query
	metadata object.QueryMetadata
	response *object.QueryResponse
}

// NewQueryAction returns an action running q in acting for target.
func NewQueryAction(acting *Context, target object.ObjectContext, q object.Query) *QueryAction {
	return &QueryAction{acting: acting, target: target, query: q}
}

func (a *QueryAction) Acting() *Context               { return a.acting }
func (a *QueryAction) Target() object.ObjectContext   { return a.target }
func (a *QueryAction) Query() object.Query            { return a.query }
func (a *QueryAction) Metadata() object.QueryMetadata { return a.metadata }

// originated reports whether the acting context is the target, i.e. the
// query did not come from a child context.
func (a *QueryAction) originated() bool {
	return a.target == object.ObjectContext(a.acting)
}

// Execute runs the pipeline and converts the result for the target.
func (a *QueryAction) Execute(ctx context.Context) (*object.QueryResponse, error) {
	md, err := a.query.Metadata(a.acting.EntityResolver())
	if err != nil {
		return nil, err
	}
	a.metadata = md

	steps := []struct {
		name string
		fn   QueryInterceptor
	}{
		{"object-id", interceptObjectIDQuery},
		{"relationship", interceptRelationshipQuery},
		{"refresh", a.acting.hooks.Refresh},
		{"internal", a.acting.hooks.Internal},
		{"paginated", a.acting.hooks.Paginated},
		{"local-cache", interceptLocalCache},
	}
	for _, step := range steps {
		if step.fn == nil {
			continue
		}
		resp, err := step.fn(ctx, a)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			slog.Debug("query intercepted", "step", step.name, "entity", entityName(md))
			a.response = resp
			break
		}
	}
	if a.response == nil {
		if a.response, err = a.runQuery(ctx); err != nil {
			return nil, err
		}
	}
	return a.interceptObjectConversion()
}

func entityName(md object.QueryMetadata) string {
	if md.ObjEntity == nil {
		return ""
	}
	return md.ObjEntity.Name
}

// runQuery sends the query down the acting context's channel.
func (a *QueryAction) runQuery(ctx context.Context) (*object.QueryResponse, error) {
	resp, err := a.acting.channel.OnQuery(ctx, a.acting, a.query)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = object.NewListResponse(nil)
	}
	return resp, nil
}

// interceptObjectIDQuery answers an id lookup from the identity map when
// the object is registered and loaded.
func interceptObjectIDQuery(_ context.Context, a *QueryAction) (*object.QueryResponse, error) {
	q, ok := a.query.(*query.ObjectIDQuery)
	if !ok || q.IsFetchMandatory() || q.FetchingDataRows {
		return nil, nil
	}
	if o := a.acting.graph.Node(q.ID); o != nil && o.PersistenceState() != object.Hollow {
		return object.NewListResponse([]any{o}), nil
	}
	if !q.IsFetchAllowed() {
		return object.NewListResponse([]any{}), nil
	}
	return nil, nil
}

// interceptRelationshipQuery answers a relationship query from a resolved
// in-memory relationship.
func interceptRelationshipQuery(ctx context.Context, a *QueryAction) (*object.QueryResponse, error) {
	q, ok := a.query.(*query.RelationshipQuery)
	if !ok || q.Refreshing {
		return nil, nil
	}
	rel, err := q.Relationship(a.acting.EntityResolver())
	if err != nil {
		return nil, err
	}
	// the list being resolved would answer its own query
	if rel.IsToMany() && a.originated() {
		return nil, nil
	}

	o := a.acting.graph.Node(q.ObjectID)
	if o == nil || o.PersistenceState() == object.Hollow {
		return nil, nil
	}
	d := a.acting.ClassDescriptor(q.ObjectID.EntityName())
	if d == nil {
		return nil, nil
	}
	p := d.Property(q.RelationshipName)
	if p == nil {
		return nil, nil
	}

	if !p.IsFault(o) {
		related := p.ReadDirectly(o)
		switch v := related.(type) {
		case nil:
			return object.NewListResponse([]any{}), nil
		case object.ToManyHolder:
			members, err := v.Objects(ctx)
			if err != nil {
				return nil, err
			}
			result := make([]any, len(members))
			for i, m := range members {
				result[i] = m
			}
			return object.NewListResponse(result), nil
		default:
			return object.NewListResponse([]any{v}), nil
		}
	}

	// An object committed to this context but not to the database has
	// nothing to fetch.
	if o.PersistenceState() == object.New && a.acting.IsTopLevel() {
		return object.NewListResponse([]any{}), nil
	}
	return nil, nil
}

// interceptLocalCache answers from the local query cache. Queries passed
// down from a child context are not cached here.
func interceptLocalCache(ctx context.Context, a *QueryAction) (*object.QueryResponse, error) {
	c := a.acting.cache
	if c == nil || a.metadata.CacheKey == "" || !a.originated() {
		return nil, nil
	}

	factory := func(ctx context.Context) ([]any, error) {
		resp, err := a.runQuery(ctx)
		if err != nil {
			return nil, err
		}
		list := resp.FirstList()
		if list == nil {
			list = []any{}
		}
		return list, nil
	}

	var (
		list []any
		err  error
	)
	switch a.metadata.CacheStrategy {
	case object.LocalCache:
		list, err = c.GetOrCreate(ctx, a.metadata.CacheKey, factory)
	case object.LocalCacheRefresh:
		list, err = c.Refresh(ctx, a.metadata.CacheKey, factory)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("local cache: %w", err)
	}
	return object.NewListResponse(list), nil
}

// interceptObjectConversion merges result objects into the target context
// when it is not the acting one. Data rows pass through.
func (a *QueryAction) interceptObjectConversion() (*object.QueryResponse, error) {
	if a.originated() || a.metadata.FetchingDataRows {
		return a.response, nil
	}
	return a.response.MapLists(func(list []any) ([]any, error) {
		out := make([]any, len(list))
		for i, v := range list {
			o, ok := v.(object.Persistent)
			if !ok {
				out[i] = v
				continue
			}
			merged, err := ShallowMerge(a.target, o)
			if err != nil {
				return nil, err
			}
			out[i] = merged
		}
		return out, nil
	})
}

// ShallowMerge returns the instance of peer's id in target, copying
// attribute values onto it unless it has local changes. A missing instance
// is created COMMITTED with faulted relationships.
func ShallowMerge(target object.ObjectContext, peer object.Persistent) (object.Persistent, error) {
	id := peer.ObjectID()
	if id == nil {
		return nil, ErrTransientObject
	}
	d := target.ClassDescriptor(id.EntityName())
	if d == nil {
		return nil, fmt.Errorf("no descriptor for %s", id.EntityName())
	}

	o := target.GraphManager().Node(id)
	if o == nil {
		created := d.NewObject()
		created.SetObjectID(id)
		created.SetPersistenceState(object.Hollow)
		created.SetObjectContext(target)
		target.GraphManager().RegisterNode(id, created)
		d.InjectValueHolders(created, true)
		o = created
	}

	switch o.PersistenceState() {
	case object.Hollow:
		d.ShallowMerge(peer, o)
		if peer.PersistenceState() == object.New {
			o.SetPersistenceState(object.New)
		} else {
			o.SetPersistenceState(object.Committed)
		}
	case object.Committed:
		d.ShallowMerge(peer, o)
	}
	return o, nil
}
