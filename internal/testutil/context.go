package testutil

import (
	"context"
	"sync"

	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
)

// PropertyChange is one PropertyChanged call recorded by StubContext.
type PropertyChange struct {
	Object   object.Persistent
	Property string
	OldValue any
	NewValue any
}

// StubContext is an ObjectContext that answers queries with QueryFunc and
// records queries and property changes. It has no channel.
//
// Thread-safety: recording is safe for concurrent use; QueryFunc must be
// too when queries run concurrently.
type StubContext struct {
	registry *object.DescriptorRegistry
	graph    *stubGraph

	// QueryFunc answers PerformQuery. A nil QueryFunc returns no objects.
	QueryFunc func(ctx context.Context, q object.Query) ([]any, error)

	mu      sync.Mutex
	queries []object.Query
	changes []PropertyChange
}

var _ object.ObjectContext = (*StubContext)(nil)

// NewStubContext returns a context over resolver with an empty registry.
func NewStubContext(resolver *schema.EntityResolver) *StubContext {
	return &StubContext{
		registry: object.NewDescriptorRegistry(resolver),
		graph:    &stubGraph{nodes: make(map[string]object.Persistent)},
	}
}

// Registry returns the descriptor registry so tests can set holder
// factories.
func (c *StubContext) Registry() *object.DescriptorRegistry { return c.registry }

// Register attaches o to the context under id in the given state.
func (c *StubContext) Register(o object.Persistent, id *object.ObjectID, state object.PersistenceState) {
	o.SetObjectID(id)
	o.SetPersistenceState(state)
	o.SetObjectContext(c)
	c.graph.RegisterNode(id, o)
}

// Queries returns the queries performed so far.
func (c *StubContext) Queries() []object.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]object.Query(nil), c.queries...)
}

// Changes returns the recorded property changes in call order.
func (c *StubContext) Changes() []PropertyChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PropertyChange(nil), c.changes...)
}

func (c *StubContext) EntityResolver() *schema.EntityResolver { return c.registry.Resolver() }

func (c *StubContext) ClassDescriptor(entity string) *object.ClassDescriptor {
	return c.registry.Descriptor(entity)
}

func (c *StubContext) GraphManager() object.GraphManager { return c.graph }
func (c *StubContext) Channel() object.DataChannel       { return nil }

func (c *StubContext) PerformQuery(ctx context.Context, q object.Query) ([]any, error) {
	c.mu.Lock()
	c.queries = append(c.queries, q)
	fn := c.QueryFunc
	c.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, q)
}

func (c *StubContext) PerformGenericQuery(ctx context.Context, q object.Query) (*object.QueryResponse, error) {
	objects, err := c.PerformQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	return object.NewListResponse(objects), nil
}

func (c *StubContext) PrepareForAccess(context.Context, object.Persistent, string, bool) error {
	return nil
}

func (c *StubContext) PropertyChanged(o object.Persistent, property string, oldValue, newValue any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, PropertyChange{Object: o, Property: property, OldValue: oldValue, NewValue: newValue})
}

// LocalObject returns the registered instance of o's id or o itself.
func (c *StubContext) LocalObject(o object.Persistent) (object.Persistent, error) {
	if o.ObjectID() == nil {
		return o, nil
	}
	if local := c.graph.Node(o.ObjectID()); local != nil {
		return local, nil
	}
	return o, nil
}

type stubGraph struct {
	mu    sync.Mutex
	nodes map[string]object.Persistent
}

func (g *stubGraph) Node(id *object.ObjectID) object.Persistent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[id.Key()]
}

func (g *stubGraph) RegisterNode(id *object.ObjectID, o object.Persistent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[id.Key()] = o
}

func (g *stubGraph) UnregisterNode(id *object.ObjectID) object.Persistent {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.nodes[id.Key()]
	delete(g.nodes, id.Key())
	return o
}
