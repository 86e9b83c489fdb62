package schema

import (
	"fmt"

	"github.com/roach88/objgraph/internal/exp"
)

// DbAttribute describes a table column.
type DbAttribute struct {
	Name       string
	Type       SQLType
	MaxLength  int
	Scale      int
	Mandatory  bool
	PrimaryKey bool
	Generated  bool

	entity *DbEntity
}

// Entity returns the owning table.
func (a *DbAttribute) Entity() *DbEntity { return a.entity }

// DbJoin pairs a source column with a target column of a relationship.
type DbJoin struct {
	SourceName string
	TargetName string

	rel *DbRelationship
}

// Relationship returns the owning relationship.
func (j *DbJoin) Relationship() *DbRelationship { return j.rel }

// Source returns the source column, or nil if unresolvable.
func (j *DbJoin) Source() *DbAttribute {
	if j.rel == nil || j.rel.source == nil {
		return nil
	}
	return j.rel.source.Attribute(j.SourceName)
}

// Target returns the target column, or nil if unresolvable.
func (j *DbJoin) Target() *DbAttribute {
	if j.rel == nil {
		return nil
	}
	target := j.rel.TargetEntity()
	if target == nil {
		return nil
	}
	return target.Attribute(j.TargetName)
}

// DbRelationship is a foreign-key edge between two tables.
type DbRelationship struct {
	Name             string
	TargetEntityName string
	ToMany           bool

	// ToDependentPK marks a to-one relationship whose target PK is also a
	// FK to this entity's PK. The target row is inserted after the source.
	ToDependentPK bool

	joins  []*DbJoin
	source *DbEntity
}

// NewDbRelationship returns a relationship with the given column pairs,
// given as alternating source, target names.
func NewDbRelationship(name, target string, toMany bool, columnPairs ...string) *DbRelationship {
	r := &DbRelationship{Name: name, TargetEntityName: target, ToMany: toMany}
	for i := 0; i+1 < len(columnPairs); i += 2 {
		r.AddJoin(columnPairs[i], columnPairs[i+1])
	}
	return r
}

// AddJoin appends a source → target column pair.
func (r *DbRelationship) AddJoin(sourceName, targetName string) {
	r.joins = append(r.joins, &DbJoin{SourceName: sourceName, TargetName: targetName, rel: r})
}

// Joins returns the column pairs in declaration order.
func (r *DbRelationship) Joins() []*DbJoin { return r.joins }

// SourceEntity returns the table owning the relationship.
func (r *DbRelationship) SourceEntity() *DbEntity { return r.source }

// TargetEntity returns the target table, or nil if it is not registered.
func (r *DbRelationship) TargetEntity() *DbEntity {
	if r.source == nil || r.source.dataMap == nil {
		return nil
	}
	return r.source.dataMap.DbEntity(r.TargetEntityName)
}

// IsToPK reports whether every join targets a primary key column.
func (r *DbRelationship) IsToPK() bool {
	if len(r.joins) == 0 {
		return false
	}
	for _, j := range r.joins {
		target := j.Target()
		if target == nil || !target.PrimaryKey {
			return false
		}
	}
	return true
}

// IsFromPK reports whether every join starts at a primary key column.
func (r *DbRelationship) IsFromPK() bool {
	if len(r.joins) == 0 {
		return false
	}
	for _, j := range r.joins {
		source := j.Source()
		if source == nil || !source.PrimaryKey {
			return false
		}
	}
	return true
}

// ReferencesTarget reports whether the source row holds a key of the target
// row, so the target must be inserted first and deleted last.
func (r *DbRelationship) ReferencesTarget() bool {
	if r.ToMany || r.ToDependentPK || !r.IsToPK() {
		return false
	}
	if rev := r.ReverseRelationship(); rev != nil && rev.ToDependentPK {
		return true
	}
	return !r.IsFromPK()
}

// ReverseRelationship returns the target's relationship with mirrored
// joins, or nil.
func (r *DbRelationship) ReverseRelationship() *DbRelationship {
	target := r.TargetEntity()
	if target == nil || r.source == nil {
		return nil
	}
	for _, candidate := range target.rels {
		if candidate.TargetEntityName != r.source.Name || len(candidate.joins) != len(r.joins) {
			continue
		}
		if joinsMirror(r.joins, candidate.joins) {
			return candidate
		}
	}
	return nil
}

func joinsMirror(a, b []*DbJoin) bool {
	for _, ja := range a {
		found := false
		for _, jb := range b {
			if ja.SourceName == jb.TargetName && ja.TargetName == jb.SourceName {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// DbEntity describes a table.
type DbEntity struct {
	Name   string
	Schema string

	// Qualifier restricts the rows of the table visible to every query.
	// Object paths in it are read as db paths.
	Qualifier *exp.Expression

	attrs     []*DbAttribute
	attrIndex map[string]*DbAttribute
	rels      []*DbRelationship
	relIndex  map[string]*DbRelationship
	dataMap   *DataMap
}

// NewDbEntity returns an empty table description.
func NewDbEntity(name string) *DbEntity {
	return &DbEntity{
		Name:      name,
		attrIndex: make(map[string]*DbAttribute),
		relIndex:  make(map[string]*DbRelationship),
	}
}

// DataMap returns the owning data map.
func (e *DbEntity) DataMap() *DataMap { return e.dataMap }

// FullyQualifiedName returns schema.name, or name without a schema.
func (e *DbEntity) FullyQualifiedName() string {
	if e.Schema == "" {
		return e.Name
	}
	return e.Schema + "." + e.Name
}

// AddAttribute appends a column. Column order is significant.
func (e *DbEntity) AddAttribute(a *DbAttribute) error {
	if _, exists := e.attrIndex[a.Name]; exists {
		return fmt.Errorf("%w: attribute %s.%s", ErrDuplicate, e.Name, a.Name)
	}
	a.entity = e
	e.attrs = append(e.attrs, a)
	e.attrIndex[a.Name] = a
	return nil
}

// Attribute returns a column by name, or nil.
func (e *DbEntity) Attribute(name string) *DbAttribute { return e.attrIndex[name] }

// Attributes returns the columns in declaration order.
func (e *DbEntity) Attributes() []*DbAttribute { return e.attrs }

// PrimaryKeys returns the PK columns in declaration order.
func (e *DbEntity) PrimaryKeys() []*DbAttribute {
	var pks []*DbAttribute
	for _, a := range e.attrs {
		if a.PrimaryKey {
			pks = append(pks, a)
		}
	}
	return pks
}

// AddRelationship registers a relationship with e as its source.
func (e *DbEntity) AddRelationship(r *DbRelationship) error {
	if _, exists := e.relIndex[r.Name]; exists {
		return fmt.Errorf("%w: relationship %s.%s", ErrDuplicate, e.Name, r.Name)
	}
	r.source = e
	e.rels = append(e.rels, r)
	e.relIndex[r.Name] = r
	return nil
}

// Relationship returns a relationship by name, or nil.
func (e *DbEntity) Relationship(name string) *DbRelationship { return e.relIndex[name] }

// Relationships returns the relationships in declaration order.
func (e *DbEntity) Relationships() []*DbRelationship { return e.rels }

var dbLookup = pathLookup[*DbEntity, *DbAttribute, *DbRelationship]{
	attribute:    (*DbEntity).Attribute,
	relationship: (*DbEntity).Relationship,
	target:       (*DbRelationship).TargetEntity,
}

// ResolvePath resolves a db path against e. Aliases map alias names to
// relationship paths.
func (e *DbEntity) ResolvePath(path string, aliases map[string]string) ([]DbPathComponent, error) {
	return resolvePath(e, path, aliases, dbLookup)
}

// LastPathComponent returns the final component of a resolved db path.
func (e *DbEntity) LastPathComponent(path string, aliases map[string]string) (DbPathComponent, error) {
	return lastComponent(e.ResolvePath(path, aliases))
}
