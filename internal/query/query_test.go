package query_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/query"
	"github.com/roach88/objgraph/internal/schema"
	"github.com/roach88/objgraph/internal/testutil"
)

func TestSelectQuery_Metadata(t *testing.T) {
	resolver := testutil.GalleryResolver()

	q := query.NewSelectQuery("Artist", exp.MatchExp("name", "Monet"))
	md, err := q.Metadata(resolver)
	require.NoError(t, err)
	assert.Equal(t, "Artist", md.ObjEntity.Name)
	assert.Empty(t, md.CacheKey, "no key without a cache strategy")

	q.CacheStrategy = object.LocalCache
	md, err = q.Metadata(resolver)
	require.NoError(t, err)
	assert.Len(t, md.CacheKey, 64)

	_, err = query.NewSelectQuery("Nope", nil).Metadata(resolver)
	assert.True(t, errors.Is(err, schema.ErrUnknownEntity))
}

func TestSelectQuery_CacheKey(t *testing.T) {
	a := query.NewSelectQuery("Artist", exp.MatchExp("name", "Monet"))
	b := query.NewSelectQuery("Artist", exp.MatchExp("name", "Monet"))
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	b.FetchLimit = 5
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())

	c := query.NewSelectQuery("Artist", exp.MatchExp("name", "Manet"))
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())

	d := query.NewSelectQuery("Artist", exp.MatchExp("name", "Monet"))
	d.AddOrdering("name", true)
	assert.NotEqual(t, a.CacheKey(), d.CacheKey())
}

func TestSelectQuery_CacheKeyNormalizesUnicode(t *testing.T) {
	composed := query.NewSelectQuery("Artist", exp.MatchExp("name", "C\u00e9zanne"))
	decomposed := query.NewSelectQuery("Artist", exp.MatchExp("name", "Ce\u0301zanne"))
	assert.Equal(t, composed.CacheKey(), decomposed.CacheKey())
}

func TestSelectQuery_AndQualifier(t *testing.T) {
	q := query.NewSelectQuery("Artist", nil)
	q.AndQualifier(exp.MatchExp("name", "a"))
	assert.Equal(t, `name = "a"`, q.Qualifier.String())
	q.AndQualifier(exp.MatchExp("age", 3))
	assert.Equal(t, `(name = "a") and (age = 3)`, q.Qualifier.String())
}

func TestObjectIDQuery(t *testing.T) {
	resolver := testutil.GalleryResolver()
	id := object.NewObjectID("CompoundPk",
		object.IDValue{Column: "key1", Value: 1},
		object.IDValue{Column: "key2", Value: "b"},
	)
	q := query.NewObjectIDQuery(id)
	assert.False(t, q.IsFetchMandatory())
	assert.True(t, q.IsFetchAllowed())

	replacement, err := q.ReplacementQuery(resolver)
	require.NoError(t, err)
	assert.Equal(t, "CompoundPk", replacement.EntityName)
	assert.Equal(t, `(db:key1 = 1) and (db:key2 = "b")`, replacement.Qualifier.String())

	q.Policy = query.IDCacheRefresh
	md, err := q.Metadata(resolver)
	require.NoError(t, err)
	assert.True(t, md.RefreshingObjects)

	_, err = query.NewObjectIDQuery(object.NewTemporaryID("Artist")).ReplacementQuery(resolver)
	assert.True(t, errors.Is(err, object.ErrTemporaryID))
}

func TestRelationshipQuery(t *testing.T) {
	resolver := testutil.GalleryResolver()
	id := object.NewSingleObjectID("Artist", "id", 7)

	q := query.NewRelationshipQuery(id, "paintings")
	md, err := q.Metadata(resolver)
	require.NoError(t, err)
	assert.Equal(t, "Painting", md.ObjEntity.Name)

	replacement, err := q.ReplacementQuery(resolver)
	require.NoError(t, err)
	assert.Equal(t, "Painting", replacement.EntityName)
	require.Equal(t, exp.EqualTo, replacement.Qualifier.Type())
	path := replacement.Qualifier.Operand(0).(*exp.Expression)
	assert.Equal(t, exp.DbPath, path.Type())
	assert.Equal(t, "artist", path.Path())
	assert.Same(t, id, replacement.Qualifier.Operand(1))

	_, err = query.NewRelationshipQuery(id, "nope").Metadata(resolver)
	assert.True(t, errors.Is(err, object.ErrUnknownProperty))
}

func TestParseFile(t *testing.T) {
	q, err := query.ParseFile([]byte(`
entity: Artist
qualifier:
  op: and
  args:
    - {op: "=", path: name, value: Foo}
    - {op: "=", path: age, value: null}
orderings:
  - {path: name, desc: true}
prefetch: [paintings.gallery]
limit: 10
cache: LOCAL_CACHE
`))
	require.NoError(t, err)
	assert.Equal(t, "Artist", q.EntityName)
	assert.Equal(t, `(name = "Foo") and (age = null)`, q.Qualifier.String())
	assert.Equal(t, []query.Ordering{{Path: "name", Descending: true}}, q.Orderings)
	assert.Equal(t, []string{"paintings.gallery"}, q.Prefetch.NonPhantomPaths())
	assert.Equal(t, 10, q.FetchLimit)
	assert.Equal(t, object.LocalCache, q.CacheStrategy)

	_, err = query.ParseFile([]byte(`qualifier: {op: "="}`))
	assert.Error(t, err)
	_, err = query.ParseFile([]byte("entity: Artist\ncache: SOMETIMES\n"))
	assert.Error(t, err)
}
