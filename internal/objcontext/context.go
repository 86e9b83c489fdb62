package objcontext

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/objgraph/internal/cache"
	"github.com/roach88/objgraph/internal/fault"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/query"
	"github.com/roach88/objgraph/internal/schema"
)

// Context is an object context over a DataChannel. It is both an
// object.ObjectContext and, for its child contexts, an object.DataChannel.
//
// Thread-safety: the identity map and the change log are safe for
// concurrent use. Different goroutines may resolve faults of different
// objects; mutating one object from several goroutines is not supported.
type Context struct {
	channel   object.DataChannel
	registry  *object.DescriptorRegistry
	graph     *graphManager
	changes   *changeLog
	cache     *cache.QueryCache
	hooks     QueryActionHooks
	listeners *Listeners
}

var (
	_ object.ObjectContext = (*Context)(nil)
	_ object.DataChannel   = (*Context)(nil)
)

// Option configures a Context.
type Option func(*Context)

// WithQueryCache enables the local query cache.
func WithQueryCache(c *cache.QueryCache) Option {
	return func(ctx *Context) { ctx.cache = c }
}

// WithQueryActionHooks replaces the default query action hooks.
func WithQueryActionHooks(h QueryActionHooks) Option {
	return func(ctx *Context) { ctx.hooks = h }
}

// New returns a top-level context over channel.
func New(channel object.DataChannel, opts ...Option) *Context {
	registry := object.NewDescriptorRegistry(channel.EntityResolver())
	registry.ToManyFactory = fault.ToManyFactory
	registry.ToOneFault = fault.ToOneFault{}
	return newContext(channel, registry, opts)
}

func newContext(channel object.DataChannel, registry *object.DescriptorRegistry, opts []Option) *Context {
	c := &Context{
		channel:   channel,
		registry:  registry,
		graph:     newGraphManager(),
		changes:   &changeLog{},
		hooks:     DefaultQueryActionHooks(),
		listeners: &Listeners{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewChildContext returns a context whose channel is c.
func (c *Context) NewChildContext(opts ...Option) *Context {
	return newContext(c, c.registry, opts)
}

// IsTopLevel reports whether the channel is not another context.
func (c *Context) IsTopLevel() bool {
	_, nested := c.channel.(*Context)
	return !nested
}

func (c *Context) EntityResolver() *schema.EntityResolver { return c.channel.EntityResolver() }

func (c *Context) ClassDescriptor(entity string) *object.ClassDescriptor {
	return c.registry.Descriptor(entity)
}

func (c *Context) GraphManager() object.GraphManager { return c.graph }
func (c *Context) Channel() object.DataChannel       { return c.channel }

// QueryCache returns the local query cache, nil when disabled.
func (c *Context) QueryCache() *cache.QueryCache { return c.cache }

// Listeners returns the commit and rollback listener registry.
func (c *Context) Listeners() *Listeners { return c.listeners }

// RegisteredObjects returns every object of the identity map.
func (c *Context) RegisteredObjects() []object.Persistent { return c.graph.Nodes() }

// HasChanges reports whether there are uncommitted changes.
func (c *Context) HasChanges() bool { return c.changes.len() > 0 }

// Changes returns the uncommitted changes as one diff.
func (c *Context) Changes() *object.CompoundDiff { return c.changes.snapshot() }

// PerformQuery runs q and returns the first list of the response.
func (c *Context) PerformQuery(ctx context.Context, q object.Query) ([]any, error) {
	resp, err := c.PerformGenericQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	return resp.FirstList(), nil
}

func (c *Context) PerformGenericQuery(ctx context.Context, q object.Query) (*object.QueryResponse, error) {
	return NewQueryAction(c, c, q).Execute(ctx)
}

// OnQuery runs q for a child context. Results are merged into originating.
func (c *Context) OnQuery(ctx context.Context, originating object.ObjectContext, q object.Query) (*object.QueryResponse, error) {
	return NewQueryAction(c, originating, q).Execute(ctx)
}

// NewObject creates and registers a NEW object of entity.
func (c *Context) NewObject(entity string) (*object.DataObject, error) {
	d := c.ClassDescriptor(entity)
	if d == nil {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownEntity, entity)
	}
	o := d.NewObject()
	if err := c.RegisterNewObject(o); err != nil {
		return nil, err
	}
	return o, nil
}

// RegisterNewObject registers a TRANSIENT object as NEW under a temporary
// id. Its to-many relationships start resolved and empty.
func (c *Context) RegisterNewObject(o object.Persistent) error {
	if oc := o.ObjectContext(); oc != nil {
		if oc == object.ObjectContext(c) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrForeignObject, o.ObjectID())
	}
	d := c.ClassDescriptor(o.EntityName())
	if d == nil {
		return fmt.Errorf("%w: %s", schema.ErrUnknownEntity, o.EntityName())
	}
	id := o.ObjectID()
	if id == nil {
		id = object.NewTemporaryID(o.EntityName())
		o.SetObjectID(id)
	}
	o.SetPersistenceState(object.New)
	o.SetObjectContext(c)
	c.graph.RegisterNode(id, o)
	for _, p := range d.Properties() {
		if p.Kind() == object.ToManyProperty {
			if h := p.ToManyHolder(o); h != nil && h.IsFault() {
				h.SetObjects(nil)
			}
		}
	}
	c.changes.add(object.NodeCreateDiff{ID: id})
	return nil
}

// DeleteObject marks o DELETED. A NEW object is unregistered at once.
func (c *Context) DeleteObject(o object.Persistent) error {
	if o.ObjectContext() != object.ObjectContext(c) {
		if o.ObjectContext() == nil {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrForeignObject, o.ObjectID())
	}
	switch o.PersistenceState() {
	case object.Transient, object.Deleted:
		return nil
	case object.New:
		c.graph.UnregisterNode(o.ObjectID())
		o.SetPersistenceState(object.Transient)
		o.SetObjectContext(nil)
	default:
		o.SetPersistenceState(object.Deleted)
	}
	c.changes.add(object.NodeDeleteDiff{ID: o.ObjectID()})
	return nil
}

// LocalObject returns the instance of o's id in this context. An
// unregistered id gets a HOLLOW placeholder, or a NEW copy for a
// temporary id.
func (c *Context) LocalObject(o object.Persistent) (object.Persistent, error) {
	id := o.ObjectID()
	if id == nil {
		return nil, ErrTransientObject
	}
	if local := c.graph.Node(id); local != nil {
		return local, nil
	}
	if id.IsTemporary() {
		d := c.ClassDescriptor(id.EntityName())
		if d == nil {
			return nil, fmt.Errorf("%w: %s", schema.ErrUnknownEntity, id.EntityName())
		}
		local := d.NewObject()
		d.ShallowMerge(o, local)
		local.SetObjectID(id)
		local.SetPersistenceState(object.New)
		local.SetObjectContext(c)
		c.graph.RegisterNode(id, local)
		d.InjectValueHolders(local, false)
		return local, nil
	}
	return c.localNode(id)
}

// localNode returns the registered object of id, registering a HOLLOW
// placeholder when there is none.
func (c *Context) localNode(id *object.ObjectID) (object.Persistent, error) {
	if o := c.graph.Node(id); o != nil {
		return o, nil
	}
	d := c.ClassDescriptor(id.EntityName())
	if d == nil {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownEntity, id.EntityName())
	}
	o := d.NewObject()
	o.SetObjectID(id)
	o.SetPersistenceState(object.Hollow)
	o.SetObjectContext(c)
	c.graph.RegisterNode(id, o)
	d.InjectValueHolders(o, true)
	return o, nil
}

// PrepareForAccess loads a HOLLOW object through an ObjectIDQuery.
func (c *Context) PrepareForAccess(ctx context.Context, o object.Persistent, property string, lazyFaulting bool) error {
	if o.PersistenceState() != object.Hollow {
		return nil
	}
	q := &query.ObjectIDQuery{ID: o.ObjectID(), Policy: query.IDCacheRefresh}
	objects, err := c.PerformQuery(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare %s for access: %w", o.ObjectID(), err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, o.ObjectID())
	}
	if fetched, ok := objects[0].(object.Persistent); ok && fetched != o {
		if d := c.ClassDescriptor(o.EntityName()); d != nil {
			d.ShallowMerge(fetched, o)
		}
	}
	if o.PersistenceState() == object.Hollow {
		o.SetPersistenceState(object.Committed)
	}
	return nil
}

// PropertyChanged records a change. Relationship changes are recorded as
// arcs between ids, attribute changes as property diffs.
func (c *Context) PropertyChanged(o object.Persistent, property string, oldValue, newValue any) {
	if o.PersistenceState() == object.Committed {
		o.SetPersistenceState(object.Modified)
	}
	id := o.ObjectID()

	if d := c.ClassDescriptor(o.EntityName()); d != nil {
		if p := d.Property(property); p != nil && p.IsRelationship() {
			if old, ok := oldValue.(object.Persistent); ok && old != nil {
				c.changes.add(object.ArcDeleteDiff{ID: id, TargetID: old.ObjectID(), Arc: property})
			}
			if target, ok := newValue.(object.Persistent); ok && target != nil {
				c.changes.add(object.ArcCreateDiff{ID: id, TargetID: target.ObjectID(), Arc: property})
			}
			return
		}
	}
	c.changes.add(object.NodePropertyChangeDiff{ID: id, Property: property, OldValue: oldValue, NewValue: newValue})
}

// Commit sends the changes through the channel all the way to the
// database. A child context commits its parent's changes too.
func (c *Context) Commit(ctx context.Context) error {
	_, err := c.flush(ctx, object.FlushCascadeSync)
	return err
}

// CommitToParent applies the changes of a child context to its parent
// without committing the parent. On a top-level context it is Commit.
func (c *Context) CommitToParent(ctx context.Context) error {
	_, err := c.flush(ctx, object.FlushSync)
	return err
}

func (c *Context) flush(ctx context.Context, syncType object.SyncType) (object.GraphDiff, error) {
	changes := c.changes.snapshot()
	if changes.IsNoop() {
		return nil, nil
	}
	reply, err := c.channel.OnSync(ctx, c, changes, syncType)
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if reply != nil {
		reply.Apply(&replyLoader{c: c})
	}

	committed := c.postCommit()
	slog.Debug("committed context",
		"changes", len(changes.Diffs()),
		"objects", len(committed),
		"top_level", c.IsTopLevel(),
	)
	c.listeners.Fire(ctx, Event{Kind: EventCommitted, Context: c, Objects: committed})
	return reply, nil
}

// postCommit moves NEW and MODIFIED objects to COMMITTED, drops DELETED
// ones and clears the change log.
func (c *Context) postCommit() []object.Persistent {
	var changed []object.Persistent
	for _, o := range c.graph.Nodes() {
		switch o.PersistenceState() {
		case object.New, object.Modified:
			o.SetPersistenceState(object.Committed)
			changed = append(changed, o)
		case object.Deleted:
			c.graph.UnregisterNode(o.ObjectID())
			o.SetPersistenceState(object.Transient)
			o.SetObjectContext(nil)
			changed = append(changed, o)
		}
	}
	c.changes.clear()
	return changed
}

// Rollback reverts every uncommitted change. NEW objects are unregistered;
// MODIFIED and DELETED objects get their committed values back.
func (c *Context) Rollback(ctx context.Context) {
	c.changes.snapshot().Undo(&rollbackLoader{ctx: ctx, c: c})

	var reverted []object.Persistent
	for _, o := range c.graph.Nodes() {
		switch o.PersistenceState() {
		case object.New:
			c.graph.UnregisterNode(o.ObjectID())
			o.SetPersistenceState(object.Transient)
			o.SetObjectContext(nil)
			reverted = append(reverted, o)
		case object.Modified, object.Deleted:
			o.SetPersistenceState(object.Committed)
			reverted = append(reverted, o)
		}
	}
	c.changes.clear()
	c.listeners.Fire(ctx, Event{Kind: EventRolledBack, Context: c, Objects: reverted})
}

// OnSync applies the changes of a child context. A cascading flush commits
// this context too and returns the channel's reply to the child.
func (c *Context) OnSync(ctx context.Context, originating object.ObjectContext, changes object.GraphDiff, syncType object.SyncType) (object.GraphDiff, error) {
	switch syncType {
	case object.RollbackCascadeSync:
		c.Rollback(ctx)
		return nil, nil
	case object.FlushSync, object.FlushCascadeSync:
		loader := &childLoader{ctx: ctx, c: c}
		changes.Apply(loader)
		if loader.err != nil {
			return nil, fmt.Errorf("apply child changes: %w", loader.err)
		}
		if syncType == object.FlushCascadeSync {
			return c.flush(ctx, object.FlushCascadeSync)
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported sync type %d", syncType)
}
