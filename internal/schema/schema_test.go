package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/schema"
	"github.com/roach88/objgraph/internal/testutil"
)

func TestGalleryFixture_Validates(t *testing.T) {
	resolver := testutil.GalleryResolver()
	require.NoError(t, resolver.Validate())
}

func TestDbRelationship_IsToPK(t *testing.T) {
	resolver := testutil.GalleryResolver()

	toArtist := resolver.DbEntity("painting").Relationship("artist")
	assert.True(t, toArtist.IsToPK())
	assert.False(t, toArtist.IsFromPK())
	assert.True(t, toArtist.ReferencesTarget())

	paintings := resolver.DbEntity("artist").Relationship("paintings")
	assert.False(t, paintings.IsToPK())
	assert.False(t, paintings.ReferencesTarget())

	compound := resolver.DbEntity("compound_fk").Relationship("compound")
	assert.True(t, compound.IsToPK())
	require.Len(t, compound.Joins(), 2)
	assert.Equal(t, "f_key1", compound.Joins()[0].Source().Name)
	assert.Equal(t, "key2", compound.Joins()[1].Target().Name)
}

func TestDbRelationship_DependentPK(t *testing.T) {
	resolver := testutil.GalleryResolver()

	info := resolver.DbEntity("painting").Relationship("info")
	assert.True(t, info.IsToPK())
	assert.False(t, info.ReferencesTarget(), "master side does not depend on the dependent row")

	back := resolver.DbEntity("painting_info").Relationship("painting")
	assert.True(t, back.ReferencesTarget())
}

func TestDbRelationship_Reverse(t *testing.T) {
	resolver := testutil.GalleryResolver()

	toArtist := resolver.DbEntity("painting").Relationship("artist")
	rev := toArtist.ReverseRelationship()
	require.NotNil(t, rev)
	assert.Equal(t, "paintings", rev.Name)
	assert.Same(t, toArtist, rev.ReverseRelationship())

	compound := resolver.DbEntity("compound_fk").Relationship("compound")
	require.NotNil(t, compound.ReverseRelationship())
	assert.Equal(t, "fks", compound.ReverseRelationship().Name)
}

func TestDbEntity_PrimaryKeysInOrder(t *testing.T) {
	resolver := testutil.GalleryResolver()
	pks := resolver.DbEntity("compound_pk").PrimaryKeys()
	require.Len(t, pks, 2)
	assert.Equal(t, "key1", pks[0].Name)
	assert.Equal(t, "key2", pks[1].Name)
}

func TestDbEntity_Duplicates(t *testing.T) {
	e := schema.NewDbEntity("t")
	require.NoError(t, e.AddAttribute(&schema.DbAttribute{Name: "a"}))
	assert.True(t, errors.Is(e.AddAttribute(&schema.DbAttribute{Name: "a"}), schema.ErrDuplicate))

	m := schema.NewDataMap("m")
	require.NoError(t, m.AddDbEntity(e))
	assert.True(t, errors.Is(m.AddDbEntity(schema.NewDbEntity("t")), schema.ErrDuplicate))
}

func TestObjEntity_Inheritance(t *testing.T) {
	resolver := testutil.GalleryResolver()

	manager := resolver.ObjEntity("Manager")
	require.NotNil(t, manager)
	assert.Equal(t, "person", manager.DbEntity().Name)
	assert.NotNil(t, manager.Attribute("personType"), "inherited from Person")
	assert.True(t, manager.IsSubentityOf(resolver.ObjEntity("Person")))
	assert.False(t, resolver.ObjEntity("Person").IsSubentityOf(manager))

	names := func(attrs []*schema.ObjAttribute) []string {
		var out []string
		for _, a := range attrs {
			out = append(out, a.Name)
		}
		return out
	}
	assert.Equal(t, []string{"name", "personType"}, names(manager.Attributes()))
}

func TestQualifierForEntityAndSubclasses(t *testing.T) {
	resolver := testutil.GalleryResolver()

	q := resolver.ObjEntity("Employee").QualifierForEntityAndSubclasses()
	require.NotNil(t, q)
	assert.Equal(t, `(personType = "E") or (personType = "M")`, q.String())

	q = resolver.ObjEntity("Manager").QualifierForEntityAndSubclasses()
	assert.Equal(t, `personType = "M"`, q.String())

	assert.Nil(t, resolver.ObjEntity("Person").QualifierForEntityAndSubclasses())
	assert.Nil(t, resolver.ObjEntity("Artist").QualifierForEntityAndSubclasses())
}

func TestQualifierForEntityAndSubclasses_ChildWithoutQualifier(t *testing.T) {
	resolver := testutil.GalleryResolver()
	m := resolver.DataMaps()[0]

	temp := schema.NewObjEntity("Temp", "")
	temp.SuperEntityName = "Employee"
	require.NoError(t, m.AddObjEntity(temp))

	assert.Nil(t, resolver.ObjEntity("Employee").QualifierForEntityAndSubclasses())
}

func TestObjRelationship(t *testing.T) {
	resolver := testutil.GalleryResolver()
	artist := resolver.ObjEntity("Artist")

	paintings := artist.Relationship("paintings")
	assert.True(t, paintings.IsToMany())
	assert.Equal(t, "Painting", paintings.TargetEntity().Name)

	path, err := paintings.ReverseDbRelationshipPath()
	require.NoError(t, err)
	assert.Equal(t, "artist", path)

	rev := paintings.ReverseRelationship()
	require.NotNil(t, rev)
	assert.Equal(t, "artist", rev.Name)
	assert.False(t, rev.IsToMany())
	assert.Same(t, paintings, rev.ReverseRelationship())
}

func TestObjAttribute_DbAttribute(t *testing.T) {
	resolver := testutil.GalleryResolver()
	artist := resolver.ObjEntity("Artist")

	dob := artist.Attribute("dateOfBirth")
	require.NotNil(t, dob)
	assert.Equal(t, "date_of_birth", dob.DbAttribute().Name)
	assert.Equal(t, schema.TypeDate, dob.DbAttribute().Type)
	assert.False(t, dob.IsFlattened())
}

func TestResolvePath(t *testing.T) {
	resolver := testutil.GalleryResolver()
	artist := resolver.ObjEntity("Artist")

	components, err := artist.ResolvePath("paintings.gallery+.name", nil)
	require.NoError(t, err)
	require.Len(t, components, 3)

	assert.Equal(t, "paintings", components[0].Relationship.Name)
	assert.Equal(t, schema.JoinInner, components[0].JoinType)
	assert.False(t, components[0].Last)

	assert.Equal(t, "gallery", components[1].Relationship.Name)
	assert.Equal(t, schema.JoinLeftOuter, components[1].JoinType)

	assert.Equal(t, "name", components[2].Attribute.Name)
	assert.True(t, components[2].Last)
}

func TestResolvePath_Aliases(t *testing.T) {
	resolver := testutil.GalleryResolver()
	artist := resolver.ObjEntity("Artist")

	components, err := artist.ResolvePath("p0.title", map[string]string{"p0": "paintings"})
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.True(t, components[0].IsAlias())
	assert.Equal(t, "p0", components[0].Name)
	require.Len(t, components[0].AliasedPath, 1)
	assert.Equal(t, "paintings", components[0].AliasedPath[0].Relationship.Name)
	assert.Equal(t, "title", components[1].Attribute.Name)

	last, err := artist.LastPathComponent("p0", map[string]string{"p0": "paintings"})
	require.NoError(t, err)
	assert.Equal(t, "paintings", last.Relationship.Name)
}

func TestResolvePath_Errors(t *testing.T) {
	resolver := testutil.GalleryResolver()
	artist := resolver.ObjEntity("Artist")

	tests := []struct {
		name    string
		path    string
		aliases map[string]string
	}{
		{"empty", "", nil},
		{"unknown", "nope", nil},
		{"attribute not last", "name.x", nil},
		{"empty component", "paintings..title", nil},
		{"alias to attribute", "a0.title", map[string]string{"a0": "name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := artist.ResolvePath(tt.path, tt.aliases)
			assert.True(t, errors.Is(err, schema.ErrInvalidPath), "%v", err)
		})
	}
}

func TestDbEntity_ResolvePath(t *testing.T) {
	resolver := testutil.GalleryResolver()
	painting := resolver.DbEntity("painting")

	last, err := painting.LastPathComponent("artist.name", nil)
	require.NoError(t, err)
	assert.Equal(t, "name", last.Attribute.Name)
	assert.Equal(t, "artist", last.Attribute.Entity().Name)
}

func TestTranslateToDbPath(t *testing.T) {
	resolver := testutil.GalleryResolver()
	artist := resolver.ObjEntity("Artist")

	q := exp.MatchExp("paintings+.title", "x").AndExp(exp.MatchExp("dateOfBirth", nil))
	out, err := artist.TranslateToDbPath(q)
	require.NoError(t, err)
	assert.Equal(t, `(db:paintings+.title = "x") and (db:date_of_birth = null)`, out.String())

	_, err = artist.TranslateToDbPath(exp.MatchExp("bogus", 1))
	assert.True(t, errors.Is(err, schema.ErrInvalidPath))

	out, err = artist.TranslateToDbPath(nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestValidate_ReportsProblems(t *testing.T) {
	m := schema.NewDataMap("broken")
	e := schema.NewDbEntity("t")
	require.NoError(t, e.AddAttribute(&schema.DbAttribute{Name: "id", PrimaryKey: true}))
	require.NoError(t, e.AddRelationship(schema.NewDbRelationship("dangling", "missing", false, "id", "id")))
	require.NoError(t, e.AddRelationship(&schema.DbRelationship{Name: "nojoins", TargetEntityName: "t"}))
	require.NoError(t, m.AddDbEntity(e))
	obj := schema.NewObjEntity("T", "t")
	require.NoError(t, obj.AddAttribute(&schema.ObjAttribute{Name: "x"}))
	require.NoError(t, m.AddObjEntity(obj))

	err := schema.NewEntityResolver(m).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrInvalidMapping))
	assert.Contains(t, err.Error(), "unknown table missing")
	assert.Contains(t, err.Error(), "no joins")
	assert.Contains(t, err.Error(), "T.x maps to unknown column")
}

func TestParseSQLType(t *testing.T) {
	typ, err := schema.ParseSQLType("varchar")
	require.NoError(t, err)
	assert.Equal(t, schema.TypeVarchar, typ)
	assert.True(t, typ.IsCharacter())
	assert.True(t, schema.TypeDecimal.IsNumeric())

	_, err = schema.ParseSQLType("GEOMETRY")
	assert.Error(t, err)
}

func TestSortByDependency(t *testing.T) {
	resolver := testutil.GalleryResolver()
	sorted := schema.SortByDependency(resolver.DbEntities())

	pos := make(map[string]int)
	for i, e := range sorted {
		pos[e.Name] = i
	}
	require.Len(t, pos, len(resolver.DbEntities()))
	assert.Less(t, pos["artist"], pos["painting"])
	assert.Less(t, pos["gallery"], pos["painting"])
	assert.Less(t, pos["painting"], pos["painting_info"])
	assert.Less(t, pos["compound_pk"], pos["compound_fk"])
}
