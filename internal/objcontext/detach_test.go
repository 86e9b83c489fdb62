package objcontext_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/fault"
	"github.com/roach88/objgraph/internal/objcontext"
	"github.com/roach88/objgraph/internal/object"
)

// gallery builds Monet with two paintings hanging in the same gallery.
func gallery(t *testing.T, c *objcontext.Context) (artist, p1, p2, g *object.DataObject) {
	t.Helper()
	artist = load(t, c, row("Artist", 1, map[string]any{"name": "Monet", "age": 86}))
	p1 = load(t, c, row("Painting", 10, map[string]any{"title": "Water Lilies"}))
	p2 = load(t, c, row("Painting", 11, map[string]any{"title": "Haystacks"}))
	g = load(t, c, row("Gallery", 100, map[string]any{"name": "Orangerie"}))

	artist.ReadPropertyDirectly("paintings").(*fault.PersistentObjectList).SetObjects([]object.Persistent{p1, p2})
	for _, p := range []*object.DataObject{p1, p2} {
		p.WritePropertyDirectly("artist", artist)
		p.WritePropertyDirectly("gallery", g)
	}
	return artist, p1, p2, g
}

func detachedPaintings(t *testing.T, o object.Persistent) []object.Persistent {
	t.Helper()
	list, ok := o.ReadPropertyDirectly("paintings").(*fault.PersistentObjectList)
	require.True(t, ok)
	assert.False(t, list.IsFault())
	members, err := list.Objects(context.Background())
	require.NoError(t, err)
	return members
}

func TestDetach_SharedInstances(t *testing.T) {
	c := objcontext.New(newChannel())
	artist, _, _, g := gallery(t, c)

	copied, err := objcontext.Detach(context.Background(), artist, c.ClassDescriptor("Artist"), object.NewPrefetchTree("paintings.gallery"))
	require.NoError(t, err)

	assert.NotSame(t, artist, copied)
	assert.Nil(t, copied.ObjectContext())
	assert.Equal(t, object.Committed, copied.PersistenceState())
	assert.True(t, artist.ObjectID().Equal(copied.ObjectID()))
	assert.Equal(t, "Monet", copied.ReadPropertyDirectly("name"))
	assert.Equal(t, 86, copied.ReadPropertyDirectly("age"))

	paintings := detachedPaintings(t, copied)
	require.Len(t, paintings, 2)
	assert.Equal(t, "Water Lilies", paintings[0].ReadPropertyDirectly("title"))
	assert.Equal(t, "Haystacks", paintings[1].ReadPropertyDirectly("title"))

	g1 := paintings[0].ReadPropertyDirectly("gallery")
	g2 := paintings[1].ReadPropertyDirectly("gallery")
	require.NotNil(t, g1)
	assert.Same(t, g1, g2)
	assert.NotSame(t, g, g1)
	assert.Equal(t, "Orangerie", g1.(object.Persistent).ReadPropertyDirectly("name"))
	assert.Nil(t, g1.(object.Persistent).ObjectContext())

	for _, p := range paintings {
		assert.Same(t, copied, p.ReadPropertyDirectly("artist"), "back reference points at the copy")
		assert.Nil(t, p.ObjectContext())
	}
}

func TestDetach_Cycle(t *testing.T) {
	c := objcontext.New(newChannel())
	artist, _, _, _ := gallery(t, c)

	copied, err := objcontext.Detach(context.Background(), artist, c.ClassDescriptor("Artist"), object.NewPrefetchTree("paintings.artist"))
	require.NoError(t, err)

	for _, p := range detachedPaintings(t, copied) {
		assert.Same(t, copied, p.ReadPropertyDirectly("artist"))
	}
}

func TestDetach_RelationshipsOutsideTheTree(t *testing.T) {
	c := objcontext.New(newChannel())
	_, p1, _, _ := gallery(t, c)

	copied, err := objcontext.Detach(context.Background(), p1, c.ClassDescriptor("Painting"), nil)
	require.NoError(t, err)

	assert.Equal(t, "Water Lilies", copied.ReadPropertyDirectly("title"))
	assert.Nil(t, copied.ReadPropertyDirectly("artist"))
	assert.Nil(t, copied.ReadPropertyDirectly("gallery"))
	assert.Nil(t, copied.ReadPropertyDirectly("info"))
}

func TestDetach_ToOne(t *testing.T) {
	c := objcontext.New(newChannel())
	artist, p1, _, _ := gallery(t, c)

	copied, err := objcontext.Detach(context.Background(), p1, c.ClassDescriptor("Painting"), object.NewPrefetchTree("artist", "gallery"))
	require.NoError(t, err)

	a, ok := copied.ReadPropertyDirectly("artist").(object.Persistent)
	require.True(t, ok)
	assert.NotSame(t, artist, a)
	assert.Equal(t, "Monet", a.ReadPropertyDirectly("name"))
	assert.Nil(t, a.ReadPropertyDirectly("paintings"), "to-many not in the tree is left unset")
	assert.NotNil(t, copied.ReadPropertyDirectly("gallery"))
}

func TestDetach_TransientSource(t *testing.T) {
	c := objcontext.New(newChannel())
	_, err := objcontext.Detach(context.Background(), object.NewDataObject("Artist"), c.ClassDescriptor("Artist"), nil)
	require.ErrorIs(t, err, objcontext.ErrTransientObject)
}
