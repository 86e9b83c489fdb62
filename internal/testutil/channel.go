package testutil

import (
	"context"
	"sync"

	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
)

// SyncCall is one OnSync call recorded by RecordingChannel.
type SyncCall struct {
	Changes  object.GraphDiff
	SyncType object.SyncType
}

// RecordingChannel is an in-memory DataChannel. QueryFunc and SyncFunc
// answer the calls; every call is recorded.
type RecordingChannel struct {
	resolver *schema.EntityResolver

	// QueryFunc answers OnQuery. A nil QueryFunc returns an empty list.
	QueryFunc func(ctx context.Context, originating object.ObjectContext, q object.Query) (*object.QueryResponse, error)

	// SyncFunc answers OnSync. A nil SyncFunc accepts the changes and
	// replies with nothing.
	SyncFunc func(ctx context.Context, originating object.ObjectContext, changes object.GraphDiff) (object.GraphDiff, error)

	mu      sync.Mutex
	queries []object.Query
	syncs   []SyncCall
}

var _ object.DataChannel = (*RecordingChannel)(nil)

// NewRecordingChannel returns a channel over resolver.
func NewRecordingChannel(resolver *schema.EntityResolver) *RecordingChannel {
	return &RecordingChannel{resolver: resolver}
}

func (c *RecordingChannel) EntityResolver() *schema.EntityResolver { return c.resolver }

func (c *RecordingChannel) OnQuery(ctx context.Context, originating object.ObjectContext, q object.Query) (*object.QueryResponse, error) {
	c.mu.Lock()
	c.queries = append(c.queries, q)
	fn := c.QueryFunc
	c.mu.Unlock()
	if fn == nil {
		return object.NewListResponse([]any{}), nil
	}
	return fn(ctx, originating, q)
}

func (c *RecordingChannel) OnSync(ctx context.Context, originating object.ObjectContext, changes object.GraphDiff, syncType object.SyncType) (object.GraphDiff, error) {
	c.mu.Lock()
	c.syncs = append(c.syncs, SyncCall{Changes: changes, SyncType: syncType})
	fn := c.SyncFunc
	c.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, originating, changes)
}

// Queries returns the queries received so far.
func (c *RecordingChannel) Queries() []object.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]object.Query(nil), c.queries...)
}

// Syncs returns the OnSync calls received so far.
func (c *RecordingChannel) Syncs() []SyncCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SyncCall(nil), c.syncs...)
}
