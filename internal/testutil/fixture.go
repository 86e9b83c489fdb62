package testutil

import (
	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/schema"
)

// GalleryResolver returns a fresh resolver over the gallery fixture model.
//
// Tables (PKs first):
//
//	artist(id, name, age, date_of_birth)
//	painting(id, title, price, artist_id → artist, gallery_id → gallery)
//	gallery(id, name)
//	painting_info(painting_id → painting, review)       dependent PK
//	compound_pk(key1, key2, name)                       two-column PK
//	compound_fk(id, name, f_key1, f_key2 → compound_pk) two-column FK
//	person(id, name, person_type)                       single-table inheritance
//
// Object entities: Artist, Painting, Gallery, PaintingInfo, CompoundPk,
// CompoundFk, Person, Employee (person_type "E") and Manager (person_type
// "M", extends Employee).
func GalleryResolver() *schema.EntityResolver {
	m := schema.NewDataMap("gallery")

	artist := table("artist",
		pk("id", true),
		col("name", schema.TypeVarchar, 254, true),
		col("age", schema.TypeInteger, 0, false),
		col("date_of_birth", schema.TypeDate, 0, false),
	)
	must(artist.AddRelationship(schema.NewDbRelationship("paintings", "painting", true, "id", "artist_id")))

	painting := table("painting",
		pk("id", true),
		col("title", schema.TypeVarchar, 254, true),
		&schema.DbAttribute{Name: "price", Type: schema.TypeDecimal, MaxLength: 10, Scale: 2},
		col("artist_id", schema.TypeInteger, 0, false),
		col("gallery_id", schema.TypeInteger, 0, false),
	)
	must(painting.AddRelationship(schema.NewDbRelationship("artist", "artist", false, "artist_id", "id")))
	must(painting.AddRelationship(schema.NewDbRelationship("gallery", "gallery", false, "gallery_id", "id")))
	info := schema.NewDbRelationship("info", "painting_info", false, "id", "painting_id")
	info.ToDependentPK = true
	must(painting.AddRelationship(info))

	gallery := table("gallery",
		pk("id", true),
		col("name", schema.TypeVarchar, 100, true),
	)
	must(gallery.AddRelationship(schema.NewDbRelationship("paintings", "painting", true, "id", "gallery_id")))

	paintingInfo := table("painting_info",
		pk("painting_id", false),
		col("review", schema.TypeVarchar, 1000, false),
	)
	must(paintingInfo.AddRelationship(schema.NewDbRelationship("painting", "painting", false, "painting_id", "id")))

	compoundPK := table("compound_pk",
		pk("key1", false),
		&schema.DbAttribute{Name: "key2", Type: schema.TypeVarchar, MaxLength: 20, PrimaryKey: true, Mandatory: true},
		col("name", schema.TypeVarchar, 100, false),
	)
	must(compoundPK.AddRelationship(schema.NewDbRelationship("fks", "compound_fk", true,
		"key1", "f_key1", "key2", "f_key2")))

	compoundFK := table("compound_fk",
		pk("id", true),
		col("name", schema.TypeVarchar, 100, false),
		col("f_key1", schema.TypeInteger, 0, false),
		col("f_key2", schema.TypeVarchar, 20, false),
	)
	must(compoundFK.AddRelationship(schema.NewDbRelationship("compound", "compound_pk", false,
		"f_key1", "key1", "f_key2", "key2")))

	person := table("person",
		pk("id", true),
		col("name", schema.TypeVarchar, 100, true),
		col("person_type", schema.TypeChar, 1, true),
	)

	for _, e := range []*schema.DbEntity{artist, painting, gallery, paintingInfo, compoundPK, compoundFK, person} {
		must(m.AddDbEntity(e))
	}

	must(m.AddObjEntity(entity("Artist", "artist",
		attrs("name", "age", "dateOfBirth:date_of_birth"),
		rel("paintings", "Painting", "paintings"),
	)))
	must(m.AddObjEntity(entity("Painting", "painting",
		attrs("title", "price"),
		rel("artist", "Artist", "artist"),
		rel("gallery", "Gallery", "gallery"),
		rel("info", "PaintingInfo", "info"),
	)))
	must(m.AddObjEntity(entity("Gallery", "gallery",
		attrs("name"),
		rel("paintings", "Painting", "paintings"),
	)))
	must(m.AddObjEntity(entity("PaintingInfo", "painting_info",
		attrs("review"),
		rel("painting", "Painting", "painting"),
	)))
	must(m.AddObjEntity(entity("CompoundPk", "compound_pk",
		attrs("name"),
		rel("fks", "CompoundFk", "fks"),
	)))
	must(m.AddObjEntity(entity("CompoundFk", "compound_fk",
		attrs("name"),
		rel("compound", "CompoundPk", "compound"),
	)))

	must(m.AddObjEntity(entity("Person", "person", attrs("name", "personType:person_type"))))
	employee := entity("Employee", "", nil)
	employee.SuperEntityName = "Person"
	employee.Qualifier = exp.MatchExp("personType", "E")
	must(m.AddObjEntity(employee))
	manager := entity("Manager", "", nil)
	manager.SuperEntityName = "Employee"
	manager.Qualifier = exp.MatchExp("personType", "M")
	must(m.AddObjEntity(manager))

	return schema.NewEntityResolver(m)
}

func table(name string, attrs ...*schema.DbAttribute) *schema.DbEntity {
	e := schema.NewDbEntity(name)
	for _, a := range attrs {
		must(e.AddAttribute(a))
	}
	return e
}

func pk(name string, generated bool) *schema.DbAttribute {
	return &schema.DbAttribute{Name: name, Type: schema.TypeInteger, PrimaryKey: true, Mandatory: true, Generated: generated}
}

func col(name string, t schema.SQLType, maxLength int, mandatory bool) *schema.DbAttribute {
	return &schema.DbAttribute{Name: name, Type: t, MaxLength: maxLength, Mandatory: mandatory}
}

// attrs parses "name" or "name:column" specs.
func attrs(specs ...string) []*schema.ObjAttribute {
	out := make([]*schema.ObjAttribute, 0, len(specs))
	for _, s := range specs {
		a := &schema.ObjAttribute{Name: s}
		for i := 0; i < len(s); i++ {
			if s[i] == ':' {
				a.Name, a.DbAttributePath = s[:i], s[i+1:]
				break
			}
		}
		out = append(out, a)
	}
	return out
}

func rel(name, target, dbPath string) *schema.ObjRelationship {
	return &schema.ObjRelationship{Name: name, TargetEntityName: target, DbRelationshipPath: dbPath}
}

func entity(name, table string, attributes []*schema.ObjAttribute, rels ...*schema.ObjRelationship) *schema.ObjEntity {
	e := schema.NewObjEntity(name, table)
	for _, a := range attributes {
		must(e.AddAttribute(a))
	}
	for _, r := range rels {
		must(e.AddRelationship(r))
	}
	return e
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
