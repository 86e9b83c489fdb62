package object_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/object"
)

func TestObjectID_StructuralEquality(t *testing.T) {
	a := object.NewSingleObjectID("Artist", "id", 5)
	b := object.NewSingleObjectID("Artist", "id", int64(5))
	c := object.NewSingleObjectID("Artist", "id", "5")
	d := object.NewSingleObjectID("Painting", "id", 5)

	assert.True(t, a.Equal(b), "integer kinds compare equal")
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.Equal(t, "Artist:id=5", a.Key())
	assert.Equal(t, `Artist:id="5"`, c.Key())
}

func TestObjectID_CompoundKeyOrder(t *testing.T) {
	id := object.NewObjectID("CompoundPk",
		object.IDValue{Column: "key1", Value: 5},
		object.IDValue{Column: "key2", Value: "x"},
	)
	assert.Equal(t, `CompoundPk:key1=5,key2="x"`, id.Key())
	assert.Equal(t, map[string]any{"key1": 5, "key2": "x"}, id.Snapshot())

	_, err := id.SingleValue()
	assert.True(t, errors.Is(err, object.ErrCompoundID))

	v, ok := id.Value("key2")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestObjectID_Temporary(t *testing.T) {
	a := object.NewTemporaryID("Artist")
	b := object.NewTemporaryID("Artist")

	assert.True(t, a.IsTemporary())
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a))
	assert.Empty(t, a.Snapshot())

	_, err := a.SingleValue()
	assert.True(t, errors.Is(err, object.ErrTemporaryID))
}

func TestObjectID_Replacement(t *testing.T) {
	temp := object.NewTemporaryID("Artist")
	assert.False(t, temp.HasReplacement())

	_, err := temp.ReplacementID([]string{"id"})
	assert.Error(t, err)

	temp.SetReplacementValue("id", int64(42))
	require.True(t, temp.HasReplacement())

	perm, err := temp.ReplacementID([]string{"id"})
	require.NoError(t, err)
	assert.False(t, perm.IsTemporary())
	assert.True(t, perm.Equal(object.NewSingleObjectID("Artist", "id", 42)))
}

func TestPersistenceState(t *testing.T) {
	assert.Equal(t, "HOLLOW", object.Hollow.String())
	assert.True(t, object.New.IsTransient())
	assert.True(t, object.Transient.IsTransient())
	assert.False(t, object.Committed.IsTransient())
	assert.True(t, object.Modified.IsUncommitted())
	assert.True(t, object.Deleted.IsUncommitted())
	assert.False(t, object.Hollow.IsUncommitted())
}
