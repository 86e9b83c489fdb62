package objcontext_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/objcontext"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/testutil"
)

func newChannel() *testutil.RecordingChannel {
	return testutil.NewRecordingChannel(testutil.GalleryResolver())
}

// row returns a detached COMMITTED object as a channel would fetch it.
func row(entity string, id int, values map[string]any) *object.DataObject {
	o := object.NewDataObject(entity)
	o.SetObjectID(object.NewSingleObjectID(entity, "id", id))
	o.SetPersistenceState(object.Committed)
	for k, v := range values {
		o.WritePropertyDirectly(k, v)
	}
	return o
}

// load registers peer in c the way a fetch does.
func load(t *testing.T, c object.ObjectContext, peer object.Persistent) *object.DataObject {
	t.Helper()
	o, err := objcontext.ShallowMerge(c, peer)
	require.NoError(t, err)
	return o.(*object.DataObject)
}

// answering returns a QueryFunc that merges peers into the context the
// query arrives from.
func answering(peers ...object.Persistent) func(context.Context, object.ObjectContext, object.Query) (*object.QueryResponse, error) {
	return func(_ context.Context, originating object.ObjectContext, _ object.Query) (*object.QueryResponse, error) {
		out := make([]any, 0, len(peers))
		for _, p := range peers {
			o, err := objcontext.ShallowMerge(originating, p)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
		return object.NewListResponse(out), nil
	}
}

func artistID(id int) *object.ObjectID { return object.NewSingleObjectID("Artist", "id", id) }
