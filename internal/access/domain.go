package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/objcontext"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/query"
	"github.com/roach88/objgraph/internal/schema"
	"github.com/roach88/objgraph/internal/store"
	"github.com/roach88/objgraph/internal/translator"
)

// Domain is the DataChannel of top-level contexts. It runs queries and
// commits against one database.
//
// Thread-safety: a Domain may serve several contexts concurrently. The
// underlying store serializes statements.
type Domain struct {
	store       *store.Store
	adapter     dbadapter.DbAdapter
	resolver    *schema.EntityResolver
	translator  []translator.Option
	pkGenerator dbadapter.PKGenerator
}

var _ object.DataChannel = (*Domain)(nil)

// Option configures a Domain.
type Option func(*Domain)

// WithTranslatorOptions sets the options of every SELECT translation.
func WithTranslatorOptions(opts ...translator.Option) Option {
	return func(d *Domain) { d.translator = opts }
}

// WithPKGenerator replaces the adapter's key generator.
func WithPKGenerator(g dbadapter.PKGenerator) Option {
	return func(d *Domain) { d.pkGenerator = g }
}

// New returns a domain over st.
func New(st *store.Store, adapter dbadapter.DbAdapter, resolver *schema.EntityResolver, opts ...Option) *Domain {
	d := &Domain{store: st, adapter: adapter, resolver: resolver}
	for _, opt := range opts {
		opt(d)
	}
	if d.pkGenerator == nil {
		d.pkGenerator = adapter.PKGenerator()
	}
	return d
}

func (d *Domain) EntityResolver() *schema.EntityResolver { return d.resolver }

// Adapter returns the adapter statements are built with.
func (d *Domain) Adapter() dbadapter.DbAdapter { return d.adapter }

// NewContext returns a top-level context over d.
func (d *Domain) NewContext(opts ...objcontext.Option) *objcontext.Context {
	return objcontext.New(d, opts...)
}

// OnQuery runs select, object id and relationship queries. Fetched
// objects are registered in originating.
func (d *Domain) OnQuery(ctx context.Context, originating object.ObjectContext, q object.Query) (*object.QueryResponse, error) {
	var (
		sel  *query.SelectQuery
		err  error
		kind string
	)
	switch q := q.(type) {
	case *query.SelectQuery:
		sel, kind = q, "select"
	case *query.ObjectIDQuery:
		sel, err = q.ReplacementQuery(d.resolver)
		kind = "object_id"
	case *query.RelationshipQuery:
		sel, err = q.ReplacementQuery(d.resolver)
		kind = "relationship"
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedQuery, q)
	}
	if errors.Is(err, object.ErrTemporaryID) {
		// never stored, nothing to fetch
		return object.NewListResponse([]any{}), nil
	}
	if err != nil {
		return nil, err
	}

	list, err := d.performSelect(ctx, originating, sel)
	sampleQuery(kind, err)
	if err != nil {
		return nil, err
	}
	return object.NewListResponse(list), nil
}

// OnSync commits flushed changes. A rollback has nothing to undo below
// the top-level context.
func (d *Domain) OnSync(ctx context.Context, originating object.ObjectContext, changes object.GraphDiff, syncType object.SyncType) (object.GraphDiff, error) {
	switch syncType {
	case object.RollbackCascadeSync:
		return nil, nil
	case object.FlushSync, object.FlushCascadeSync:
		return d.commit(ctx, originating, changes)
	}
	return nil, fmt.Errorf("unsupported sync type %d", syncType)
}
